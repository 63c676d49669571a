package runner

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/training"
)

// EvaluateRun scores every saved epoch of the session's run on the named
// split, stopping at the first missing checkpoint or after the configured
// number of epochs. fn sees each record as it is produced.
func (s *Session) EvaluateRun(inputDir, split string, fn func(epoch int, r training.EvaluationRecord)) ([]training.EvaluationRecord, error) {
	loader, err := s.SplitLoader(split, false)
	if err != nil {
		return nil, err
	}
	store := checkpoints.NewStore(inputDir, checkpoints.FormatProto)
	inf := training.NewModelInferencer(s.Model, store, s.Config.Name)
	return inf.EvaluateRun(loader, s.Config.Train.Epochs, fn)
}

// formatFloat prints the shortest representation, keeping one decimal on
// whole numbers so 1 prints as 1.0.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !math.IsNaN(v) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// WriteScore prints one "f1,acc" line.
func WriteScore(w io.Writer, r training.EvaluationRecord) {
	fmt.Fprintf(w, "%s,%s\n", formatFloat(r.F1), formatFloat(r.Accuracy))
}

// WriteCSV writes records with an f1,acc,loss header.
func WriteCSV(w io.Writer, records []training.EvaluationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"f1", "acc", "loss"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{formatFloat(r.F1), formatFloat(r.Accuracy), formatFloat(r.Loss)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SweepOptions locates the inputs and outputs of Sweep.
type SweepOptions struct {
	ConfigDir string
	InputDir  string
	OutputDir string
	Split     string
	Log       io.Writer
}

// Sweep evaluates the checkpoints of every *.toml configuration in
// ConfigDir and writes OutputDir/<name>.csv for each.
func Sweep(paths Paths, opts SweepOptions) error {
	configs, err := filepath.Glob(filepath.Join(opts.ConfigDir, "*.toml"))
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return fmt.Errorf("no *.toml files in %s", opts.ConfigDir)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, path := range configs {
		fmt.Fprintln(opts.Log, path)
		s, err := Open(path, paths, opts.Log)
		if err != nil {
			return err
		}
		records, err := s.EvaluateRun(opts.InputDir, opts.Split, nil)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Config.Name, err)
		}
		if err := writeCSVFile(filepath.Join(opts.OutputDir, s.Config.Name+".csv"), records); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(path string, records []training.EvaluationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
