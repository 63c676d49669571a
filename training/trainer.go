package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/optimizer"
)

// ErrNonFiniteLoss is returned when a training batch produces a NaN or
// infinite loss.
var ErrNonFiniteLoss = errors.New("training loss is not finite")

// Trainer runs the epoch loop: train on every batch, evaluate on the
// validation split, checkpoint, then update early stopping.
type Trainer struct {
	model     Model
	train     *DataLoader
	valid     *DataLoader
	config    config.TrainConfig
	store     *checkpoints.Store
	run       string
	criterion Loss
	evaluate  EvalFunc
	out       io.Writer
	progress  bool

	optimizer optimizer.Optimizer
	stopper   *EarlyStopping
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithOutput sends the progress bar and epoch summaries to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(t *Trainer) { t.out = w }
}

// WithProgress toggles the per-batch progress bar.
func WithProgress(enabled bool) Option {
	return func(t *Trainer) { t.progress = enabled }
}

// WithEvaluator replaces Evaluate.
func WithEvaluator(fn EvalFunc) Option {
	return func(t *Trainer) { t.evaluate = fn }
}

// NewTrainer creates a Trainer writing checkpoints of run into store.
func NewTrainer(model Model, train, valid *DataLoader, cfg config.TrainConfig, store *checkpoints.Store, run string, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}
	if run == "" {
		return nil, fmt.Errorf("run name must not be empty")
	}

	t := &Trainer{
		model:     model,
		train:     train,
		valid:     valid,
		config:    cfg,
		store:     store,
		run:       run,
		criterion: NewCrossEntropyLoss(model.NumClasses()),
		evaluate:  Evaluate,
		out:       os.Stdout,
		progress:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run trains for at most the configured number of epochs and returns one
// record per completed epoch. The run directory is recreated empty first.
// Cancellation of ctx is checked before each epoch.
func (t *Trainer) Run(ctx context.Context) ([]EvaluationRecord, error) {
	if t.config.Epochs > 0 {
		if t.train.NumSamples() == 0 {
			return nil, fmt.Errorf("training split: %w", ErrEmptySplit)
		}
		if t.valid.NumSamples() == 0 {
			return nil, fmt.Errorf("validation split: %w", ErrEmptySplit)
		}
	}

	if err := t.store.Reset(t.run); err != nil {
		return nil, err
	}

	records := []EvaluationRecord{}
	if t.config.Epochs == 0 {
		return records, nil
	}

	seed := uint64(t.config.Seed)
	if err := Initialize(t.model.Parameters(), t.config.Init, rand.NewPCG(seed, seed+1)); err != nil {
		return nil, err
	}
	opt, err := NewOptimizer(t.config, t.model.Parameters())
	if err != nil {
		return nil, err
	}
	t.optimizer = opt
	t.stopper = NewEarlyStopping(t.config.Patience, t.config.LossDelta)

	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		if err := t.trainEpoch(epoch); err != nil {
			return records, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		record, err := t.evaluate(t.model, t.valid)
		if err != nil {
			return records, fmt.Errorf("epoch %d: validation: %w", epoch, err)
		}
		stop := t.stopper.Update(record.Loss)

		if err := t.saveCheckpoint(epoch, record); err != nil {
			return records, err
		}
		records = append(records, record)
		fmt.Fprintln(t.out, FormatRecord(epoch, record))

		if stop {
			fmt.Fprintf(t.out, "Early stopping at epoch %d\n", epoch)
			break
		}
	}

	return records, nil
}

func (t *Trainer) trainEpoch(epoch int) error {
	t.model.Train()
	t.train.Reset()

	var bar *ProgressBar
	if t.progress {
		bar = NewProgressBar(t.out, fmt.Sprintf("Epoch %d", epoch), t.train.Len())
	}

	var total float64
	for batchIdx := 1; t.train.HasNext(); batchIdx++ {
		batch, err := t.train.Next()
		if err != nil {
			return err
		}

		t.optimizer.ZeroGrad()
		logits, err := t.model.Forward(batch.Tokens)
		if err != nil {
			return fmt.Errorf("forward pass failed: %w", err)
		}
		loss, err := t.criterion.Forward(logits, batch.Labels)
		if err != nil {
			return err
		}
		value := float64(loss.Data[0])
		if !loss.IsFinite() {
			return fmt.Errorf("batch %d: %w (%v)", batchIdx, ErrNonFiniteLoss, value)
		}
		if err := loss.Backward(); err != nil {
			return fmt.Errorf("backward pass failed: %w", err)
		}
		if err := t.optimizer.Step(); err != nil {
			return fmt.Errorf("optimizer step failed: %w", err)
		}

		total += value
		if bar != nil {
			bar.Update(batchIdx, map[string]float64{"loss": total / float64(batchIdx)})
		}
	}

	if bar != nil {
		bar.Finish()
	}
	return nil
}

func (t *Trainer) saveCheckpoint(epoch int, record EvaluationRecord) error {
	state, err := t.optimizer.GetState()
	if err != nil {
		return fmt.Errorf("failed to capture optimizer state: %w", err)
	}

	ckpt := &checkpoints.Checkpoint{
		Run:     t.run,
		Weights: checkpoints.ExtractWeights(t.model.Parameters()),
		TrainingState: checkpoints.TrainingState{
			Epoch:        epoch,
			Step:         int(t.optimizer.GetStepCount()),
			LearningRate: float32(t.config.LR),
			BestLoss:     t.stopper.BestLoss,
			Strikes:      t.stopper.Strikes,
		},
		Metrics:        record.Checkpoint(),
		OptimizerState: state,
	}
	if err := t.store.Save(ckpt); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
