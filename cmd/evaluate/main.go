// Command evaluate scores every saved epoch of a run and prints one "f1,acc"
// line per epoch.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tsawler/go-sentiment/dataset"
	"github.com/tsawler/go-sentiment/runner"
	"github.com/tsawler/go-sentiment/training"
)

func main() {
	defaults := runner.DefaultPaths()
	input := flag.String("i", "checkpoints", "directory holding the checkpoints")
	dataDir := flag.String("data", defaults.DataDir, "directory holding the dataset splits")
	vectors := flag.String("vectors", defaults.VectorsPath, "pretrained word2vec binary")
	vocabPath := flag.String("vocab", defaults.VocabPath, "vocabulary cache file")
	split := flag.String("split", dataset.ValidationFile, "split to evaluate on")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] config.toml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	paths := runner.Paths{DataDir: *dataDir, VectorsPath: *vectors, VocabPath: *vocabPath}
	session, err := runner.Open(flag.Arg(0), paths, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("f1,acc")
	_, err = session.EvaluateRun(*input, *split, func(_ int, r training.EvaluationRecord) {
		runner.WriteScore(os.Stdout, r)
	})
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}
}
