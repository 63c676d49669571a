package training

import (
	"errors"
	"fmt"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/tensor"
)

// ErrEmptySplit is returned when a split that must be iterated has no examples.
var ErrEmptySplit = errors.New("split has no examples")

// ErrNonFiniteLogits is returned when a forward pass yields NaN or infinite
// logits, so no class can be picked.
var ErrNonFiniteLogits = errors.New("logits are not finite")

// EvaluationRecord holds the validation metrics of one epoch.
type EvaluationRecord struct {
	F1       float64 `json:"f1"`
	Accuracy float64 `json:"accuracy"`
	Loss     float64 `json:"loss"`
}

// Checkpoint converts the record for storage.
func (r EvaluationRecord) Checkpoint() *checkpoints.Metrics {
	return &checkpoints.Metrics{F1: r.F1, Accuracy: r.Accuracy, Loss: r.Loss}
}

// RecordFromCheckpoint restores the record stored with a checkpoint.
func RecordFromCheckpoint(m *checkpoints.Metrics) EvaluationRecord {
	if m == nil {
		return EvaluationRecord{}
	}
	return EvaluationRecord{F1: m.F1, Accuracy: m.Accuracy, Loss: m.Loss}
}

// EvalFunc evaluates a model over every example of a loader.
type EvalFunc func(model Model, loader *DataLoader) (EvaluationRecord, error)

// Evaluate runs one pass over loader in evaluation mode without recording a
// graph. It reports macro-F1 over all classes, accuracy and the hard-label
// log-loss of the arg-max predictions. The model's previous mode is restored.
func Evaluate(model Model, loader *DataLoader) (EvaluationRecord, error) {
	if loader.NumSamples() == 0 {
		return EvaluationRecord{}, ErrEmptySplit
	}

	if model.IsTraining() {
		model.Eval()
		defer model.Train()
	}

	numClasses := model.NumClasses()
	cm := NewConfusionMatrix(numClasses)
	predictions := make([]int, 0, loader.NumSamples())
	labels := make([]int, 0, loader.NumSamples())

	loader.Reset()
	err := tensor.NoGrad(func() error {
		for loader.HasNext() {
			batch, err := loader.Next()
			if err != nil {
				return err
			}
			preds, err := predict(model, batch.Tokens)
			if err != nil {
				return err
			}
			if err := cm.Update(preds, batch.Labels); err != nil {
				return err
			}
			predictions = append(predictions, preds...)
			labels = append(labels, batch.Labels...)
		}
		return nil
	})
	if err != nil {
		return EvaluationRecord{}, fmt.Errorf("evaluation failed: %w", err)
	}

	loss, err := HardLabelLogLoss(predictions, labels, numClasses)
	if err != nil {
		return EvaluationRecord{}, err
	}
	return EvaluationRecord{
		F1:       cm.GetMetric(MacroF1),
		Accuracy: cm.GetMetric(Accuracy),
		Loss:     loss,
	}, nil
}

// predict runs the forward pass and picks the arg-max class of every row.
// The caller decides the mode and whether a graph is recorded.
func predict(model Model, tokens [][]int32) ([]int, error) {
	logits, err := model.Forward(tokens)
	if err != nil {
		return nil, fmt.Errorf("forward pass failed: %w", err)
	}
	if !logits.IsFinite() {
		return nil, ErrNonFiniteLogits
	}
	return tensor.Argmax(logits)
}
