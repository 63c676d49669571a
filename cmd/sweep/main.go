// Command sweep evaluates the checkpoints of every configuration in a
// directory and writes <output>/<name>.csv with f1, acc and loss per epoch.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tsawler/go-sentiment/dataset"
	"github.com/tsawler/go-sentiment/runner"
)

func main() {
	defaults := runner.DefaultPaths()
	configDir := flag.String("configs", "config", "directory of *.toml configurations")
	input := flag.String("i", "checkpoints", "directory holding the checkpoints")
	output := flag.String("o", "eval", "directory receiving the CSV files")
	dataDir := flag.String("data", defaults.DataDir, "directory holding the dataset splits")
	vectors := flag.String("vectors", defaults.VectorsPath, "pretrained word2vec binary")
	vocabPath := flag.String("vocab", defaults.VocabPath, "vocabulary cache file")
	split := flag.String("split", dataset.ValidationFile, "split to evaluate on")
	flag.Parse()

	paths := runner.Paths{DataDir: *dataDir, VectorsPath: *vectors, VocabPath: *vocabPath}
	err := runner.Sweep(paths, runner.SweepOptions{
		ConfigDir: *configDir,
		InputDir:  *input,
		OutputDir: *output,
		Split:     *split,
		Log:       os.Stderr,
	})
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
}
