// Package runner wires configuration, vocabulary, data and models together
// for the command-line tools.
package runner

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/dataset"
	"github.com/tsawler/go-sentiment/models"
	"github.com/tsawler/go-sentiment/training"
	"github.com/tsawler/go-sentiment/vocab"
)

// Paths locates the inputs shared by every command.
type Paths struct {
	DataDir     string
	VectorsPath string
	VocabPath   string
}

func DefaultPaths() Paths {
	return Paths{
		DataDir:     "Dataset",
		VectorsPath: filepath.Join("Dataset", "wiki_word2vec_50.bin"),
		VocabPath:   "model.bin",
	}
}

// Session is a loaded configuration with its vocabulary and a freshly built
// model.
type Session struct {
	Config *config.Config
	Vocab  *vocab.Vocab
	Model  training.Model
	paths  Paths
}

// Open loads the configuration at configPath, the cached vocabulary
// (building it on first use) and constructs the model. Progress notes go to
// log.
func Open(configPath string, paths Paths, log io.Writer) (*Session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	v, err := OpenVocab(paths, uint64(cfg.Train.Seed), log)
	if err != nil {
		return nil, err
	}
	return NewSession(cfg, v, paths)
}

// OpenVocab loads or builds the vocabulary cache.
func OpenVocab(paths Paths, seed uint64, log io.Writer) (*vocab.Vocab, error) {
	v, built, err := vocab.LoadOrBuild(paths.VocabPath, vocab.Source{
		DataDir:     paths.DataDir,
		VectorsPath: paths.VectorsPath,
		Seed:        seed,
	})
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}
	if built {
		fmt.Fprintf(log, "Built vocabulary of %d words (dim %d), cached to %s\n", v.Size(), v.Dim(), paths.VocabPath)
	}
	return v, nil
}

// NewSession builds the model of cfg over v.
func NewSession(cfg *config.Config, v *vocab.Vocab, paths Paths) (*Session, error) {
	model, err := models.New(cfg.Model, v.Table, uint64(cfg.Train.Seed))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	return &Session{Config: cfg, Vocab: v, Model: model, paths: paths}, nil
}

// Split loads one split of the data directory.
func (s *Session) Split(name string) (*dataset.TextDataset, error) {
	return dataset.LoadSplit(s.paths.DataDir, name, s.Vocab)
}

// Loader wraps ds in a DataLoader with the configured batch size.
func (s *Session) Loader(ds training.Dataset, shuffle bool) (*training.DataLoader, error) {
	return training.NewDataLoader(ds, s.Config.Train.BatchSize, shuffle, uint64(s.Config.Train.Seed))
}

// SplitLoader loads a split and wraps it in a DataLoader.
func (s *Session) SplitLoader(name string, shuffle bool) (*training.DataLoader, error) {
	ds, err := s.Split(name)
	if err != nil {
		return nil, err
	}
	return s.Loader(ds, shuffle)
}
