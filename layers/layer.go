package layers

import (
	"fmt"
	"strings"

	"github.com/tsawler/go-sentiment/tensor"
)

// Parameter is a named tensor owned by exactly one layer. It is trainable
// when its tensor requires grad.
type Parameter struct {
	Name   string
	Tensor *tensor.Tensor
}

func (p *Parameter) Trainable() bool {
	return p.Tensor.RequiresGrad()
}

// Module is implemented by every layer and model.
type Module interface {
	Parameters() []*Parameter
	Train()           // Sets module to training mode
	Eval()            // Sets module to evaluation mode
	IsTraining() bool // Returns true if in training mode
}

// Trainable filters params down to those updated by the optimizer.
func Trainable(params []*Parameter) []*Parameter {
	var out []*Parameter
	for _, p := range params {
		if p.Trainable() {
			out = append(out, p)
		}
	}
	return out
}

// Tensors returns the tensors of params in order.
func Tensors(params []*Parameter) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		out[i] = p.Tensor
	}
	return out
}

func newParameter(name string, shape []int, trainable bool) *Parameter {
	t := tensor.MustNew(shape, nil)
	t.SetRequiresGrad(trainable)
	return &Parameter{Name: name, Tensor: t}
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Summary returns a human-readable parameter table.
func Summary(name string, params []*Parameter) string {
	var sb strings.Builder
	var total, trainable int

	fmt.Fprintf(&sb, "Model Summary: %s\n", name)
	for _, p := range params {
		state := "trainable"
		if !p.Trainable() {
			state = "frozen"
		}
		fmt.Fprintf(&sb, "  %-28s %-18v %10d  %s\n", p.Name, p.Tensor.Shape, p.Tensor.NumElems, state)
		total += p.Tensor.NumElems
		if p.Trainable() {
			trainable += p.Tensor.NumElems
		}
	}
	fmt.Fprintf(&sb, "Total Parameters: %d (trainable %d)\n", total, trainable)

	return sb.String()
}
