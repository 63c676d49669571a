package tensor

import (
	"fmt"
	"math/rand/v2"
)

// GatherOp looks up rows of a [V,E] table for a [B,T] batch of ids.
type GatherOp struct {
	table *Tensor
	ids   [][]int32
}

func (op *GatherOp) Inputs() []*Tensor { return []*Tensor{op.table} }

func (op *GatherOp) Backward(gradOut []float32) [][]float32 {
	e := op.table.Shape[1]
	grad := make([]float32, op.table.NumElems)
	pos := 0
	for _, row := range op.ids {
		for _, id := range row {
			addInto(grad[int(id)*e:int(id+1)*e], gradOut[pos:pos+e])
			pos += e
		}
	}
	return [][]float32{grad}
}

// Gather returns table[ids] with shape [B,T,E]. Every row of ids must have the same length.
func Gather(table *Tensor, ids [][]int32) (*Tensor, error) {
	if table.Dim() != 2 {
		return nil, fmt.Errorf("Gather expects a 2D table, got %v", table.Shape)
	}
	if len(ids) == 0 || len(ids[0]) == 0 {
		return nil, fmt.Errorf("Gather expects a non-empty [B,T] id batch")
	}

	v, e := table.Shape[0], table.Shape[1]
	b, t := len(ids), len(ids[0])
	result, err := Zeros([]int{b, t, e})
	if err != nil {
		return nil, err
	}

	pos := 0
	for i, row := range ids {
		if len(row) != t {
			return nil, fmt.Errorf("ragged id batch: row %d has length %d, want %d", i, len(row), t)
		}
		for _, id := range row {
			if id < 0 || int(id) >= v {
				return nil, fmt.Errorf("id %d out of range for table of %d rows", id, v)
			}
			copy(result.Data[pos:pos+e], table.Data[int(id)*e:int(id+1)*e])
			pos += e
		}
	}

	return attach(result, &GatherOp{table: table, ids: ids}), nil
}

// UnfoldOp extracts sliding windows of k timesteps from a [B,T,E] tensor.
type UnfoldOp struct {
	input *Tensor
	k     int
}

func (op *UnfoldOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *UnfoldOp) Backward(gradOut []float32) [][]float32 {
	b, t, e := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2]
	windows := t - op.k + 1
	width := op.k * e
	grad := make([]float32, op.input.NumElems)
	for i := 0; i < b; i++ {
		for w := 0; w < windows; w++ {
			src := gradOut[(i*windows+w)*width : (i*windows+w+1)*width]
			start := (i*t + w) * e
			addInto(grad[start:start+width], src)
		}
	}
	return [][]float32{grad}
}

// Unfold returns [B*(T-k+1), k*E]; row (b, w) holds timesteps w..w+k-1 of batch b.
func Unfold(x *Tensor, k int) (*Tensor, error) {
	if x.Dim() != 3 {
		return nil, fmt.Errorf("Unfold expects [B,T,E], got %v", x.Shape)
	}
	b, t, e := x.Shape[0], x.Shape[1], x.Shape[2]
	if k <= 0 || k > t {
		return nil, fmt.Errorf("window %d does not fit a sequence of length %d", k, t)
	}

	windows := t - k + 1
	width := k * e
	result, err := Zeros([]int{b * windows, width})
	if err != nil {
		return nil, err
	}
	for i := 0; i < b; i++ {
		for w := 0; w < windows; w++ {
			start := (i*t + w) * e
			copy(result.Data[(i*windows+w)*width:], x.Data[start:start+width])
		}
	}

	return attach(result, &UnfoldOp{input: x, k: k}), nil
}

// MaxOverTimeOp reduces [B,T,C] to [B,C] by taking the maximum over T.
type MaxOverTimeOp struct {
	input  *Tensor
	argmax []int
}

func (op *MaxOverTimeOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *MaxOverTimeOp) Backward(gradOut []float32) [][]float32 {
	grad := make([]float32, op.input.NumElems)
	for i, g := range gradOut {
		grad[op.argmax[i]] += g
	}
	return [][]float32{grad}
}

func MaxOverTime(x *Tensor) (*Tensor, error) {
	if x.Dim() != 3 {
		return nil, fmt.Errorf("MaxOverTime expects [B,T,C], got %v", x.Shape)
	}
	b, t, c := x.Shape[0], x.Shape[1], x.Shape[2]
	result, err := Zeros([]int{b, c})
	if err != nil {
		return nil, err
	}

	argmax := make([]int, b*c)
	for i := 0; i < b; i++ {
		for j := 0; j < c; j++ {
			best := i*t*c + j
			for s := 1; s < t; s++ {
				idx := (i*t+s)*c + j
				if x.Data[idx] > x.Data[best] {
					best = idx
				}
			}
			argmax[i*c+j] = best
			result.Data[i*c+j] = x.Data[best]
		}
	}

	return attach(result, &MaxOverTimeOp{input: x, argmax: argmax}), nil
}

// ConcatOp joins [B,Di] tensors along the last dimension.
type ConcatOp struct {
	inputs []*Tensor
}

func (op *ConcatOp) Inputs() []*Tensor { return op.inputs }

func (op *ConcatOp) Backward(gradOut []float32) [][]float32 {
	b := op.inputs[0].Shape[0]
	total := len(gradOut) / b
	grads := make([][]float32, len(op.inputs))
	offset := 0
	for n, in := range op.inputs {
		d := in.Shape[1]
		if in.tracksGrad() {
			g := make([]float32, b*d)
			for i := 0; i < b; i++ {
				copy(g[i*d:(i+1)*d], gradOut[i*total+offset:i*total+offset+d])
			}
			grads[n] = g
		}
		offset += d
	}
	return grads
}

func Concat(tensors ...*Tensor) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("Concat needs at least one tensor")
	}
	b := tensors[0].Shape[0]
	total := 0
	for _, t := range tensors {
		if t.Dim() != 2 || t.Shape[0] != b {
			return nil, fmt.Errorf("Concat expects [%d,D] tensors, got %v", b, t.Shape)
		}
		total += t.Shape[1]
	}

	result, err := Zeros([]int{b, total})
	if err != nil {
		return nil, err
	}
	offset := 0
	for _, t := range tensors {
		d := t.Shape[1]
		for i := 0; i < b; i++ {
			copy(result.Data[i*total+offset:], t.Data[i*d:(i+1)*d])
		}
		offset += d
	}

	return attach(result, &ConcatOp{inputs: tensors}), nil
}

// SliceColsOp selects columns [from, to) of a [N,M] tensor.
type SliceColsOp struct {
	input    *Tensor
	from, to int
}

func (op *SliceColsOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *SliceColsOp) Backward(gradOut []float32) [][]float32 {
	n, m := op.input.Shape[0], op.input.Shape[1]
	width := op.to - op.from
	grad := make([]float32, op.input.NumElems)
	for i := 0; i < n; i++ {
		copy(grad[i*m+op.from:i*m+op.to], gradOut[i*width:(i+1)*width])
	}
	return [][]float32{grad}
}

func SliceCols(x *Tensor, from, to int) (*Tensor, error) {
	if x.Dim() != 2 || from < 0 || to > x.Shape[1] || from >= to {
		return nil, fmt.Errorf("invalid column slice [%d,%d) of %v", from, to, x.Shape)
	}
	n, m := x.Shape[0], x.Shape[1]
	width := to - from
	result, err := Zeros([]int{n, width})
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		copy(result.Data[i*width:(i+1)*width], x.Data[i*m+from:i*m+to])
	}
	return attach(result, &SliceColsOp{input: x, from: from, to: to}), nil
}

// TimeStepOp selects timestep t of a [B,T,D] tensor.
type TimeStepOp struct {
	input *Tensor
	step  int
}

func (op *TimeStepOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *TimeStepOp) Backward(gradOut []float32) [][]float32 {
	b, t, d := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2]
	grad := make([]float32, op.input.NumElems)
	for i := 0; i < b; i++ {
		copy(grad[(i*t+op.step)*d:(i*t+op.step+1)*d], gradOut[i*d:(i+1)*d])
	}
	return [][]float32{grad}
}

func TimeStep(x *Tensor, step int) (*Tensor, error) {
	if x.Dim() != 3 || step < 0 || step >= x.Shape[1] {
		return nil, fmt.Errorf("invalid timestep %d of %v", step, x.Shape)
	}
	b, t, d := x.Shape[0], x.Shape[1], x.Shape[2]
	result, err := Zeros([]int{b, d})
	if err != nil {
		return nil, err
	}
	for i := 0; i < b; i++ {
		copy(result.Data[i*d:(i+1)*d], x.Data[(i*t+step)*d:(i*t+step+1)*d])
	}
	return attach(result, &TimeStepOp{input: x, step: step}), nil
}

// StackStepsOp builds a [B,T,D] sequence from T tensors of shape [B,D].
type StackStepsOp struct {
	steps []*Tensor
}

func (op *StackStepsOp) Inputs() []*Tensor { return op.steps }

func (op *StackStepsOp) Backward(gradOut []float32) [][]float32 {
	b, d := op.steps[0].Shape[0], op.steps[0].Shape[1]
	t := len(op.steps)
	grads := make([][]float32, t)
	for s, step := range op.steps {
		if !step.tracksGrad() {
			continue
		}
		g := make([]float32, b*d)
		for i := 0; i < b; i++ {
			copy(g[i*d:(i+1)*d], gradOut[(i*t+s)*d:(i*t+s+1)*d])
		}
		grads[s] = g
	}
	return grads
}

func StackSteps(steps []*Tensor) (*Tensor, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("StackSteps needs at least one step")
	}
	b, d := steps[0].Shape[0], steps[0].Shape[1]
	t := len(steps)
	result, err := Zeros([]int{b, t, d})
	if err != nil {
		return nil, err
	}
	for s, step := range steps {
		if step.Dim() != 2 || step.Shape[0] != b || step.Shape[1] != d {
			return nil, fmt.Errorf("step %d has shape %v, want [%d,%d]", s, step.Shape, b, d)
		}
		for i := 0; i < b; i++ {
			copy(result.Data[(i*t+s)*d:(i*t+s+1)*d], step.Data[i*d:(i+1)*d])
		}
	}
	return attach(result, &StackStepsOp{steps: steps}), nil
}

// DropoutOp scales kept activations by 1/(1-p) and zeroes the rest.
type DropoutOp struct {
	input *Tensor
	mask  []float32
}

func (op *DropoutOp) Inputs() []*Tensor { return []*Tensor{op.input} }

func (op *DropoutOp) Backward(gradOut []float32) [][]float32 {
	grad := make([]float32, len(gradOut))
	for i, g := range gradOut {
		grad[i] = g * op.mask[i]
	}
	return [][]float32{grad}
}

// Dropout applies inverted dropout with drop probability p. p == 0 returns x unchanged.
func Dropout(x *Tensor, p float64, rng *rand.Rand) (*Tensor, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("dropout probability must be in [0, 1), got %g", p)
	}
	if p == 0 {
		return x, nil
	}

	scale := float32(1.0 / (1.0 - p))
	mask := make([]float32, x.NumElems)
	result, err := Zeros(x.Shape)
	if err != nil {
		return nil, err
	}
	for i, v := range x.Data {
		if rng.Float64() >= p {
			mask[i] = scale
			result.Data[i] = v * scale
		}
	}
	return attach(result, &DropoutOp{input: x, mask: mask}), nil
}
