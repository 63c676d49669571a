package tensor

import (
	"fmt"
)

// Operation is implemented by every differentiable op. Backward receives the
// gradient of the op's output and returns one gradient slice per input, nil
// for inputs that do not need one.
type Operation interface {
	Inputs() []*Tensor
	Backward(gradOut []float32) [][]float32
}

// Tensor is a dense, row-major float32 tensor living in host memory.
type Tensor struct {
	Shape        []int
	Strides      []int
	Data         []float32
	NumElems     int
	requiresGrad bool
	grad         *Tensor
	creator      Operation
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, elements=%d, requires_grad=%t)",
		t.Shape, t.NumElems, t.requiresGrad)
}

// RequiresGrad reports whether t is a leaf that accumulates gradients.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

func (t *Tensor) SetRequiresGrad(requires bool) {
	t.requiresGrad = requires
}

// Grad returns the accumulated gradient, or nil if none has been computed yet.
func (t *Tensor) Grad() *Tensor {
	return t.grad
}

// Creator returns the op that produced t, nil for leaves.
func (t *Tensor) Creator() Operation {
	return t.creator
}

// Dim returns the number of dimensions.
func (t *Tensor) Dim() int {
	return len(t.Shape)
}

func (t *Tensor) Numel() int {
	return t.NumElems
}

// tracksGrad is true for tensors that take part in a backward pass.
func (t *Tensor) tracksGrad() bool {
	return t.requiresGrad || t.creator != nil
}

func calculateStrides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}

	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func calculateNumElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}

	elements := 1
	for _, dim := range shape {
		elements *= dim
	}
	return elements
}

func validateShape(shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("invalid shape: at least one dimension is required")
	}
	for i, dim := range shape {
		if dim <= 0 {
			return fmt.Errorf("invalid shape: dimension %d has size %d, must be positive", i, dim)
		}
	}
	return nil
}

func shapesEqual(shape1, shape2 []int) bool {
	if len(shape1) != len(shape2) {
		return false
	}
	for i := range shape1 {
		if shape1[i] != shape2[i] {
			return false
		}
	}
	return true
}
