package training

import (
	"fmt"

	"github.com/tsawler/go-sentiment/tensor"
)

// Loss interface defines methods that all loss functions must implement
type Loss interface {
	Forward(logits *tensor.Tensor, labels []int) (*tensor.Tensor, error)
}

// CrossEntropyLoss is the mean softmax cross-entropy over integer class labels.
type CrossEntropyLoss struct {
	NumClasses int
}

func NewCrossEntropyLoss(numClasses int) *CrossEntropyLoss {
	return &CrossEntropyLoss{NumClasses: numClasses}
}

// Forward returns a scalar loss that backpropagates into logits.
func (ce *CrossEntropyLoss) Forward(logits *tensor.Tensor, labels []int) (*tensor.Tensor, error) {
	if logits.Dim() != 2 || logits.Shape[1] != ce.NumClasses {
		return nil, fmt.Errorf("expected [B,%d] logits, got %v", ce.NumClasses, logits.Shape)
	}
	loss, err := tensor.CrossEntropy(logits, labels)
	if err != nil {
		return nil, fmt.Errorf("cross entropy failed: %w", err)
	}
	return loss, nil
}
