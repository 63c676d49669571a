package tensor

import (
	"fmt"
	"math"
)

// CrossEntropyOp is the fused softmax + negative log-likelihood over [B,C] logits.
type CrossEntropyOp struct {
	logits *Tensor
	labels []int
	probs  []float32
}

func (op *CrossEntropyOp) Inputs() []*Tensor { return []*Tensor{op.logits} }

func (op *CrossEntropyOp) Backward(gradOut []float32) [][]float32 {
	b, c := op.logits.Shape[0], op.logits.Shape[1]
	scale := gradOut[0] / float32(b)
	grad := make([]float32, b*c)
	for i := 0; i < b; i++ {
		for j := 0; j < c; j++ {
			g := op.probs[i*c+j]
			if j == op.labels[i] {
				g -= 1
			}
			grad[i*c+j] = g * scale
		}
	}
	return [][]float32{grad}
}

// CrossEntropy returns the mean multi-class cross-entropy of logits [B,C]
// against integer labels in [0, C).
func CrossEntropy(logits *Tensor, labels []int) (*Tensor, error) {
	if logits.Dim() != 2 {
		return nil, fmt.Errorf("CrossEntropy expects [B,C] logits, got %v", logits.Shape)
	}
	b, c := logits.Shape[0], logits.Shape[1]
	if len(labels) != b {
		return nil, fmt.Errorf("batch size mismatch: logits %d, labels %d", b, len(labels))
	}

	probs := make([]float32, b*c)
	var total float64
	for i := 0; i < b; i++ {
		label := labels[i]
		if label < 0 || label >= c {
			return nil, fmt.Errorf("label %d out of range for %d classes", label, c)
		}
		row := logits.Data[i*c : (i+1)*c]

		// log-sum-exp with max subtraction for stability
		maxVal := float64(row[0])
		for _, v := range row[1:] {
			maxVal = math.Max(maxVal, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - maxVal)
		}
		logSum := maxVal + math.Log(sum)
		for j, v := range row {
			probs[i*c+j] = float32(math.Exp(float64(v) - logSum))
		}
		total += logSum - float64(row[label])
	}

	result := Scalar(float32(total / float64(b)))
	return attach(result, &CrossEntropyOp{logits: logits, labels: labels, probs: probs}), nil
}

// Argmax returns the index of the largest value in every row of a [B,C] tensor.
// Ties resolve to the lowest index.
func Argmax(x *Tensor) ([]int, error) {
	if x.Dim() != 2 {
		return nil, fmt.Errorf("Argmax expects [B,C], got %v", x.Shape)
	}
	b, c := x.Shape[0], x.Shape[1]
	out := make([]int, b)
	for i := 0; i < b; i++ {
		row := x.Data[i*c : (i+1)*c]
		best := 0
		for j := 1; j < c; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out, nil
}
