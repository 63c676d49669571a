package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func general(rows, cols int, data []float32) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

// MatMulTOp computes a @ w^T for a [N,K] and w [M,K].
type MatMulTOp struct {
	a, w *Tensor
}

func (op *MatMulTOp) Inputs() []*Tensor { return []*Tensor{op.a, op.w} }

func (op *MatMulTOp) Backward(gradOut []float32) [][]float32 {
	n, k := op.a.Shape[0], op.a.Shape[1]
	m := op.w.Shape[0]
	g := general(n, m, gradOut)

	var gradA, gradW []float32
	if op.a.tracksGrad() {
		// dA = g @ w
		gradA = make([]float32, n*k)
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, g, general(m, k, op.w.Data), 0, general(n, k, gradA))
	}
	if op.w.tracksGrad() {
		// dW = g^T @ a
		gradW = make([]float32, m*k)
		blas32.Gemm(blas.Trans, blas.NoTrans, 1, g, general(n, k, op.a.Data), 0, general(m, k, gradW))
	}
	return [][]float32{gradA, gradW}
}

// MatMulT returns a @ w^T. It is the linear-layer product with w stored as [out, in].
func MatMulT(a, w *Tensor) (*Tensor, error) {
	if a.Dim() != 2 || w.Dim() != 2 {
		return nil, fmt.Errorf("MatMulT expects 2D tensors, got %v and %v", a.Shape, w.Shape)
	}
	if a.Shape[1] != w.Shape[1] {
		return nil, fmt.Errorf("MatMulT inner dimension mismatch: %v @ %v^T", a.Shape, w.Shape)
	}

	n, k, m := a.Shape[0], a.Shape[1], w.Shape[0]
	result, err := Zeros([]int{n, m})
	if err != nil {
		return nil, err
	}
	blas32.Gemm(blas.NoTrans, blas.Trans, 1, general(n, k, a.Data), general(m, k, w.Data), 0, general(n, m, result.Data))

	return attach(result, &MatMulTOp{a: a, w: w}), nil
}

// ReshapeOp shares data with its input.
type ReshapeOp struct {
	input *Tensor
}

func (op *ReshapeOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *ReshapeOp) Backward(gradOut []float32) [][]float32 {
	return [][]float32{gradOut}
}

// Reshape returns a view of t with a new shape. One dimension may be -1.
func Reshape(t *Tensor, newShape []int) (*Tensor, error) {
	shape := append([]int(nil), newShape...)
	known := 1
	inferred := -1
	for i, dim := range shape {
		switch {
		case dim == -1:
			if inferred >= 0 {
				return nil, fmt.Errorf("only one dimension can be -1")
			}
			inferred = i
		case dim <= 0:
			return nil, fmt.Errorf("dimension %d has invalid size %d", i, dim)
		default:
			known *= dim
		}
	}
	if inferred >= 0 {
		if known == 0 || t.NumElems%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension for shape %v from %d elements", newShape, t.NumElems)
		}
		shape[inferred] = t.NumElems / known
		known *= shape[inferred]
	}
	if known != t.NumElems {
		return nil, fmt.Errorf("cannot reshape tensor of shape %v to %v", t.Shape, newShape)
	}

	result := &Tensor{
		Shape:    shape,
		Strides:  calculateStrides(shape),
		Data:     t.Data,
		NumElems: t.NumElems,
	}
	return attach(result, &ReshapeOp{input: t}), nil
}
