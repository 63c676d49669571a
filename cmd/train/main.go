// Command train fits the model described by a TOML configuration and writes
// one checkpoint per epoch under <output>/<config name>.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/runner"
)

func main() {
	defaults := runner.DefaultPaths()
	output := flag.String("o", "checkpoints", "directory receiving the checkpoints")
	dataDir := flag.String("data", defaults.DataDir, "directory holding train.txt, validation.txt and test.txt")
	vectors := flag.String("vectors", defaults.VectorsPath, "pretrained word2vec binary")
	vocabPath := flag.String("vocab", defaults.VocabPath, "vocabulary cache file")
	format := flag.String("format", "proto", "checkpoint format: proto or json")
	limit := flag.Int("limit", 0, "train on the first N examples only")
	quiet := flag.Bool("q", false, "suppress the architecture summary and progress bars")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] config.toml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ckptFormat, err := checkpoints.ParseFormat(*format)
	if err != nil {
		log.Fatalf("Invalid -format: %v", err)
	}

	paths := runner.Paths{DataDir: *dataDir, VectorsPath: *vectors, VocabPath: *vocabPath}
	session, err := runner.Open(flag.Arg(0), paths, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = session.Train(ctx, runner.TrainOptions{
		OutputDir: *output,
		Format:    ckptFormat,
		Limit:     *limit,
		Quiet:     *quiet,
		Out:       os.Stdout,
	})
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}
}
