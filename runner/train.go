package runner

import (
	"context"
	"io"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/dataset"
	"github.com/tsawler/go-sentiment/training"
)

// TrainOptions controls a training run.
type TrainOptions struct {
	OutputDir string
	Format    checkpoints.CheckpointFormat
	Limit     int // train on the first Limit examples when positive
	Quiet     bool
	Out       io.Writer
}

// Train runs the training loop of the session, writing checkpoints under
// OutputDir/<run name>.
func (s *Session) Train(ctx context.Context, opts TrainOptions) ([]training.EvaluationRecord, error) {
	trainSet, err := s.Split(dataset.TrainFile)
	if err != nil {
		return nil, err
	}
	var ds training.Dataset = trainSet
	if opts.Limit > 0 {
		if ds, err = training.NewSubsetDataset(trainSet, opts.Limit); err != nil {
			return nil, err
		}
	}

	trainLoader, err := s.Loader(ds, true)
	if err != nil {
		return nil, err
	}
	validLoader, err := s.SplitLoader(dataset.ValidationFile, false)
	if err != nil {
		return nil, err
	}

	if !opts.Quiet {
		training.PrintArchitecture(opts.Out, s.Config.Name, s.Model)
	}

	store := checkpoints.NewStore(opts.OutputDir, opts.Format)
	trainer, err := training.NewTrainer(s.Model, trainLoader, validLoader, s.Config.Train, store, s.Config.Name,
		training.WithOutput(opts.Out),
		training.WithProgress(!opts.Quiet),
	)
	if err != nil {
		return nil, err
	}
	return trainer.Run(ctx)
}
