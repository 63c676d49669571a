package tensor

import (
	"fmt"
	"math"
	"sync/atomic"
)

// gradDisabled > 0 means ops do not record a graph (inference mode).
var gradDisabled atomic.Int32

// NoGrad runs fn with graph recording disabled.
func NoGrad(fn func() error) error {
	gradDisabled.Add(1)
	defer gradDisabled.Add(-1)
	return fn()
}

// GradEnabled reports whether ops currently record the autograd graph.
func GradEnabled() bool {
	return gradDisabled.Load() == 0
}

// attach records op as the creator of result when any input needs a gradient.
func attach(result *Tensor, op Operation) *Tensor {
	if !GradEnabled() {
		return result
	}
	for _, in := range op.Inputs() {
		if in.tracksGrad() {
			result.creator = op
			break
		}
	}
	return result
}

// Backward runs reverse-mode differentiation from a single-element tensor and
// accumulates gradients into every reachable leaf with RequiresGrad set.
func (t *Tensor) Backward() error {
	if t.NumElems != 1 {
		return fmt.Errorf("backward requires a single-element tensor, got shape %v", t.Shape)
	}
	if !t.tracksGrad() {
		return fmt.Errorf("tensor does not require grad and has no creator")
	}

	order := topologicalOrder(t)
	grads := map[*Tensor][]float32{t: {1}}

	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		g, ok := grads[node]
		if !ok {
			continue
		}
		delete(grads, node)

		if node.creator == nil {
			if node.requiresGrad {
				node.accumulateGrad(g)
			}
			continue
		}

		inputGrads := node.creator.Backward(g)
		for j, in := range node.creator.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil || !in.tracksGrad() {
				continue
			}
			if existing, ok := grads[in]; ok {
				addInto(existing, inputGrads[j])
			} else {
				grads[in] = append([]float32(nil), inputGrads[j]...)
			}
		}
	}

	return nil
}

func (t *Tensor) accumulateGrad(g []float32) {
	if t.grad == nil {
		t.grad = &Tensor{
			Shape:    append([]int(nil), t.Shape...),
			Strides:  append([]int(nil), t.Strides...),
			Data:     make([]float32, t.NumElems),
			NumElems: t.NumElems,
		}
	}
	addInto(t.grad.Data, g)
}

// topologicalOrder returns the graph below root, inputs before consumers.
func topologicalOrder(root *Tensor) []*Tensor {
	visited := make(map[*Tensor]bool)
	var order []*Tensor

	type frame struct {
		t    *Tensor
		next int
	}
	stack := []frame{{t: root}}
	visited[root] = true

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		var inputs []*Tensor
		if top.t.creator != nil {
			inputs = top.t.creator.Inputs()
		}
		if top.next < len(inputs) {
			in := inputs[top.next]
			top.next++
			if !visited[in] && in.tracksGrad() {
				visited[in] = true
				stack = append(stack, frame{t: in})
			}
			continue
		}
		order = append(order, top.t)
		stack = stack[:len(stack)-1]
	}

	return order
}

func addInto(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// IsFinite reports whether every element is neither NaN nor infinite.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
