package training

import (
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// Model is a classifier over padded token-id batches.
type Model interface {
	layers.Module

	// Forward returns logits of shape [B, NumClasses()].
	Forward(tokens [][]int32) (*tensor.Tensor, error)
	NumClasses() int
}
