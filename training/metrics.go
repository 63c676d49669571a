package training

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MetricType represents different evaluation metrics
type MetricType int

const (
	// Binary classification metrics, class 1 positive
	Precision MetricType = iota
	Recall
	F1Score

	// Multi-class metrics
	MacroPrecision
	MacroRecall
	MacroF1
	Accuracy
)

func (mt MetricType) String() string {
	switch mt {
	case Precision:
		return "Precision"
	case Recall:
		return "Recall"
	case F1Score:
		return "F1Score"
	case MacroPrecision:
		return "MacroPrecision"
	case MacroRecall:
		return "MacroRecall"
	case MacroF1:
		return "MacroF1"
	case Accuracy:
		return "Accuracy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(mt))
	}
}

// LogLossEpsilon is the clipping bound of HardLabelLogLoss, the float64
// machine epsilon.
const LogLossEpsilon = 2.220446049250313e-16

// ConfusionMatrix counts predictions per (true, predicted) class pair.
type ConfusionMatrix struct {
	NumClasses   int
	Matrix       [][]int // [true_class][predicted_class]
	TotalSamples int

	// Cached metrics to avoid recomputation
	cachedMetrics map[MetricType]float64
}

// NewConfusionMatrix creates a new confusion matrix
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}

	return &ConfusionMatrix{
		NumClasses:    numClasses,
		Matrix:        matrix,
		cachedMetrics: make(map[MetricType]float64),
	}
}

// Reset clears the confusion matrix
func (cm *ConfusionMatrix) Reset() {
	for i := range cm.Matrix {
		for j := range cm.Matrix[i] {
			cm.Matrix[i][j] = 0
		}
	}
	cm.TotalSamples = 0
	cm.cachedMetrics = make(map[MetricType]float64)
}

// Update adds one batch of predicted and true class indices.
func (cm *ConfusionMatrix) Update(predictions, labels []int) error {
	if len(predictions) != len(labels) {
		return fmt.Errorf("predictions length mismatch: %d predictions, %d labels", len(predictions), len(labels))
	}
	for i, label := range labels {
		pred := predictions[i]
		if label < 0 || label >= cm.NumClasses {
			return fmt.Errorf("label %d out of range for %d classes", label, cm.NumClasses)
		}
		if pred < 0 || pred >= cm.NumClasses {
			return fmt.Errorf("prediction %d out of range for %d classes", pred, cm.NumClasses)
		}
		cm.Matrix[label][pred]++
	}
	cm.TotalSamples += len(labels)
	clear(cm.cachedMetrics)
	return nil
}

// GetMetric calculates and caches evaluation metrics
func (cm *ConfusionMatrix) GetMetric(metric MetricType) float64 {
	if value, ok := cm.cachedMetrics[metric]; ok {
		return value
	}

	var result float64
	switch metric {
	case Precision:
		result = cm.binary(cm.ClassPrecision)
	case Recall:
		result = cm.binary(cm.ClassRecall)
	case F1Score:
		result = cm.binary(cm.ClassF1)
	case MacroPrecision:
		result = cm.macro(cm.ClassPrecision)
	case MacroRecall:
		result = cm.macro(cm.ClassRecall)
	case MacroF1:
		result = cm.macro(cm.ClassF1)
	case Accuracy:
		result = cm.accuracy()
	default:
		return 0.0
	}

	cm.cachedMetrics[metric] = result
	return result
}

func (cm *ConfusionMatrix) binary(fn func(int) float64) float64 {
	if cm.NumClasses != 2 {
		return 0.0 // Only valid for binary classification
	}
	return fn(1)
}

// macro averages a per-class metric over every class, including classes that
// never occur.
func (cm *ConfusionMatrix) macro(fn func(int) float64) float64 {
	if cm.NumClasses == 0 {
		return 0.0
	}
	scores := make([]float64, cm.NumClasses)
	for c := range scores {
		scores[c] = fn(c)
	}
	return floats.Sum(scores) / float64(cm.NumClasses)
}

func (cm *ConfusionMatrix) truePositives(class int) float64 {
	return float64(cm.Matrix[class][class])
}

func (cm *ConfusionMatrix) predicted(class int) float64 {
	var n int
	for i := 0; i < cm.NumClasses; i++ {
		n += cm.Matrix[i][class]
	}
	return float64(n)
}

func (cm *ConfusionMatrix) actual(class int) float64 {
	var n int
	for _, v := range cm.Matrix[class] {
		n += v
	}
	return float64(n)
}

// ClassPrecision is tp / predicted, 0 when nothing was predicted as class.
func (cm *ConfusionMatrix) ClassPrecision(class int) float64 {
	p := cm.predicted(class)
	if p == 0 {
		return 0.0
	}
	return cm.truePositives(class) / p
}

// ClassRecall is tp / actual, 0 when class never occurs.
func (cm *ConfusionMatrix) ClassRecall(class int) float64 {
	a := cm.actual(class)
	if a == 0 {
		return 0.0
	}
	return cm.truePositives(class) / a
}

// ClassF1 is 2tp / (predicted + actual), 0 when both are zero.
func (cm *ConfusionMatrix) ClassF1(class int) float64 {
	denom := cm.predicted(class) + cm.actual(class)
	if denom == 0 {
		return 0.0
	}
	return 2 * cm.truePositives(class) / denom
}

func (cm *ConfusionMatrix) accuracy() float64 {
	if cm.TotalSamples == 0 {
		return 0.0
	}
	var correct float64
	for c := 0; c < cm.NumClasses; c++ {
		correct += cm.truePositives(c)
	}
	return correct / float64(cm.TotalSamples)
}

// HardLabelLogLoss is the cross-entropy of one-hot predicted distributions
// against the true labels. Each one-hot row is clipped to
// [LogLossEpsilon, 1-LogLossEpsilon] and renormalised before taking the mean
// of -log p[label]. A wrong binary prediction costs -log(eps), about 36.04.
func HardLabelLogLoss(predictions, labels []int, numClasses int) (float64, error) {
	if len(predictions) != len(labels) {
		return 0, fmt.Errorf("predictions length mismatch: %d predictions, %d labels", len(predictions), len(labels))
	}
	if len(labels) == 0 {
		return 0, ErrEmptySplit
	}
	if numClasses < 2 {
		return 0, fmt.Errorf("log loss needs at least 2 classes, got %d", numClasses)
	}

	hi := 1 - LogLossEpsilon
	rowSum := hi + float64(numClasses-1)*LogLossEpsilon
	losses := make([]float64, len(labels))
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return 0, fmt.Errorf("label %d out of range for %d classes", label, numClasses)
		}
		p := LogLossEpsilon
		if predictions[i] == label {
			p = hi
		}
		losses[i] = -math.Log(p / rowSum)
	}
	return floats.Sum(losses) / float64(len(losses)), nil
}
