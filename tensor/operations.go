package tensor

import (
	"fmt"
	"math"
)

func checkShapesCompatible(t1, t2 *Tensor) error {
	if !shapesEqual(t1.Shape, t2.Shape) {
		return fmt.Errorf("tensor shapes must match: %v vs %v", t1.Shape, t2.Shape)
	}
	return nil
}

// AddOp implements element-wise addition.
type AddOp struct {
	a, b *Tensor
}

func (op *AddOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *AddOp) Backward(gradOut []float32) [][]float32 {
	// ∂(a + b)/∂a = ∂(a + b)/∂b = 1
	return [][]float32{gradOut, gradOut}
}

func Add(a, b *Tensor) (*Tensor, error) {
	if err := checkShapesCompatible(a, b); err != nil {
		return nil, err
	}

	result, err := Zeros(a.Shape)
	if err != nil {
		return nil, err
	}
	for i := range result.Data {
		result.Data[i] = a.Data[i] + b.Data[i]
	}

	return attach(result, &AddOp{a: a, b: b}), nil
}

// MulOp implements element-wise multiplication.
type MulOp struct {
	a, b *Tensor
}

func (op *MulOp) Inputs() []*Tensor { return []*Tensor{op.a, op.b} }

func (op *MulOp) Backward(gradOut []float32) [][]float32 {
	var gradA, gradB []float32
	if op.a.tracksGrad() {
		gradA = make([]float32, len(gradOut))
		for i, g := range gradOut {
			gradA[i] = g * op.b.Data[i]
		}
	}
	if op.b.tracksGrad() {
		gradB = make([]float32, len(gradOut))
		for i, g := range gradOut {
			gradB[i] = g * op.a.Data[i]
		}
	}
	return [][]float32{gradA, gradB}
}

func Mul(a, b *Tensor) (*Tensor, error) {
	if err := checkShapesCompatible(a, b); err != nil {
		return nil, err
	}

	result, err := Zeros(a.Shape)
	if err != nil {
		return nil, err
	}
	for i := range result.Data {
		result.Data[i] = a.Data[i] * b.Data[i]
	}

	return attach(result, &MulOp{a: a, b: b}), nil
}

// AddBiasOp adds a [M] bias to every row of a [N,M] tensor.
type AddBiasOp struct {
	x, bias *Tensor
}

func (op *AddBiasOp) Inputs() []*Tensor { return []*Tensor{op.x, op.bias} }

func (op *AddBiasOp) Backward(gradOut []float32) [][]float32 {
	var gradBias []float32
	if op.bias.tracksGrad() {
		m := op.bias.NumElems
		gradBias = make([]float32, m)
		for i, g := range gradOut {
			gradBias[i%m] += g
		}
	}
	return [][]float32{gradOut, gradBias}
}

func AddBias(x, bias *Tensor) (*Tensor, error) {
	if x.Dim() != 2 || bias.Dim() != 1 || x.Shape[1] != bias.Shape[0] {
		return nil, fmt.Errorf("AddBias expects [N,M] and [M], got %v and %v", x.Shape, bias.Shape)
	}

	result, err := Zeros(x.Shape)
	if err != nil {
		return nil, err
	}
	m := bias.NumElems
	for i := range result.Data {
		result.Data[i] = x.Data[i] + bias.Data[i%m]
	}

	return attach(result, &AddBiasOp{x: x, bias: bias}), nil
}

// unaryOp covers activations whose derivative is a function of the output.
type unaryOp struct {
	input  *Tensor
	output *Tensor
	deriv  func(y float32) float32
}

func (op *unaryOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *unaryOp) Backward(gradOut []float32) [][]float32 {
	grad := make([]float32, len(gradOut))
	for i, g := range gradOut {
		grad[i] = g * op.deriv(op.output.Data[i])
	}
	return [][]float32{grad}
}

func mapUnary(t *Tensor, fn func(float32) float32, deriv func(y float32) float32) (*Tensor, error) {
	result, err := Zeros(t.Shape)
	if err != nil {
		return nil, err
	}
	for i, v := range t.Data {
		result.Data[i] = fn(v)
	}
	return attach(result, &unaryOp{input: t, output: result, deriv: deriv}), nil
}

func ReLU(t *Tensor) (*Tensor, error) {
	return mapUnary(t,
		func(x float32) float32 {
			if x > 0 {
				return x
			}
			return 0
		},
		func(y float32) float32 {
			if y > 0 {
				return 1
			}
			return 0
		})
}

func Sigmoid(t *Tensor) (*Tensor, error) {
	return mapUnary(t,
		func(x float32) float32 {
			return float32(1.0 / (1.0 + math.Exp(-float64(x))))
		},
		func(y float32) float32 {
			return y * (1 - y)
		})
}

func Tanh(t *Tensor) (*Tensor, error) {
	return mapUnary(t,
		func(x float32) float32 {
			return float32(math.Tanh(float64(x)))
		},
		func(y float32) float32 {
			return 1 - y*y
		})
}
