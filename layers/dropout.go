package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/tensor"
)

// Dropout zeroes activations with probability P while training and is the
// identity in evaluation mode.
type Dropout struct {
	P   float64
	rng *rand.Rand
}

func NewDropout(p float64, rng *rand.Rand) (*Dropout, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("dropout probability must be in [0, 1), got %g", p)
	}
	return &Dropout{P: p, rng: rng}, nil
}

func (d *Dropout) Forward(x *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if !training {
		return x, nil
	}
	return tensor.Dropout(x, d.P, d.rng)
}
