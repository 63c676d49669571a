package training

import (
	"errors"
	"fmt"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/tensor"
)

// ModelInferencer restores checkpoints of one run into a model and runs it
// without recording a graph.
type ModelInferencer struct {
	model Model
	store *checkpoints.Store
	run   string
}

func NewModelInferencer(model Model, store *checkpoints.Store, run string) *ModelInferencer {
	return &ModelInferencer{model: model, store: store, run: run}
}

// LoadEpoch copies the weights saved after epoch into the model and returns
// the checkpoint.
func (mi *ModelInferencer) LoadEpoch(epoch int) (*checkpoints.Checkpoint, error) {
	ckpt, err := mi.store.Load(mi.run, epoch)
	if err != nil {
		return nil, err
	}
	if err := checkpoints.LoadWeights(ckpt.Weights, mi.model.Parameters()); err != nil {
		return nil, fmt.Errorf("epoch %d: %w", epoch, err)
	}
	return ckpt, nil
}

// Predict returns the arg-max class of every row of tokens.
func (mi *ModelInferencer) Predict(tokens [][]int32) ([]int, error) {
	if mi.model.IsTraining() {
		mi.model.Eval()
		defer mi.model.Train()
	}
	var preds []int
	err := tensor.NoGrad(func() error {
		var err error
		preds, err = predict(mi.model, tokens)
		return err
	})
	return preds, err
}

// EvaluateEpoch loads the checkpoint of epoch and evaluates it on loader.
func (mi *ModelInferencer) EvaluateEpoch(epoch int, loader *DataLoader) (EvaluationRecord, error) {
	if _, err := mi.LoadEpoch(epoch); err != nil {
		return EvaluationRecord{}, err
	}
	return Evaluate(mi.model, loader)
}

// EvaluateRun evaluates the checkpoints of epochs 0, 1, ... in order and
// stops at the first one that does not exist or after maxEpochs when it is
// positive. fn, if set, sees every record as it is produced.
func (mi *ModelInferencer) EvaluateRun(loader *DataLoader, maxEpochs int, fn func(epoch int, r EvaluationRecord)) ([]EvaluationRecord, error) {
	var records []EvaluationRecord
	for epoch := 0; maxEpochs <= 0 || epoch < maxEpochs; epoch++ {
		record, err := mi.EvaluateEpoch(epoch, loader)
		if errors.Is(err, checkpoints.ErrNotFound) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
		if fn != nil {
			fn(epoch, record)
		}
	}
	return records, nil
}
