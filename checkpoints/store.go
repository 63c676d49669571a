package checkpoints

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a checkpoint for the requested epoch does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// Store lays checkpoints out as <root>/<run>/<epoch %02d><ext>.
type Store struct {
	Root  string
	saver *CheckpointSaver
}

func NewStore(root string, format CheckpointFormat) *Store {
	return &Store{Root: root, saver: NewCheckpointSaver(format)}
}

func (s *Store) Format() CheckpointFormat { return s.saver.Format() }

// Dir returns the directory holding the checkpoints of run.
func (s *Store) Dir(run string) string {
	return filepath.Join(s.Root, run)
}

// Path returns the file a checkpoint of the given epoch is written to.
func (s *Store) Path(run string, epoch int) string {
	return filepath.Join(s.Dir(run), fmt.Sprintf("%02d%s", epoch, s.Format().Extension()))
}

// Reset removes the run directory with everything in it and creates it empty.
func (s *Store) Reset(run string) error {
	if run == "" {
		return fmt.Errorf("run name must not be empty")
	}
	dir := s.Dir(run)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear checkpoint directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory %s: %w", dir, err)
	}
	return nil
}

// Save writes c to the path of its run and epoch.
func (s *Store) Save(c *Checkpoint) error {
	path := s.Path(c.Run, c.TrainingState.Epoch)
	if err := s.saver.SaveCheckpoint(c, path); err != nil {
		return fmt.Errorf("epoch %d: %w", c.TrainingState.Epoch, err)
	}
	return nil
}

// Load reads the checkpoint of run at epoch. A checkpoint written in the
// other format is found as well.
func (s *Store) Load(run string, epoch int) (*Checkpoint, error) {
	for _, format := range []CheckpointFormat{s.Format(), otherFormat(s.Format())} {
		path := filepath.Join(s.Dir(run), fmt.Sprintf("%02d%s", epoch, format.Extension()))
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, err
		}
		return NewCheckpointSaver(format).LoadCheckpoint(path)
	}
	return nil, fmt.Errorf("%w: run %s epoch %d", ErrNotFound, run, epoch)
}

// Exists reports whether a checkpoint of run at epoch is on disk in either format.
func (s *Store) Exists(run string, epoch int) bool {
	for _, format := range []CheckpointFormat{s.Format(), otherFormat(s.Format())} {
		path := filepath.Join(s.Dir(run), fmt.Sprintf("%02d%s", epoch, format.Extension()))
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// Epochs returns the contiguous epochs 0..n-1 saved for run, stopping at the
// first missing one.
func (s *Store) Epochs(run string) []int {
	var epochs []int
	for epoch := 0; s.Exists(run, epoch); epoch++ {
		epochs = append(epochs, epoch)
	}
	return epochs
}

func otherFormat(f CheckpointFormat) CheckpointFormat {
	if f == FormatJSON {
		return FormatProto
	}
	return FormatJSON
}
