package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/tensor"
)

// Linear computes y = x·Wᵀ + b with W of shape [out,in].
type Linear struct {
	Weight *Parameter
	Bias   *Parameter
	in     int
	out    int
}

func NewLinear(prefix string, in, out int, src rand.Source) (*Linear, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("linear layer %q: invalid dimensions %d -> %d", prefix, in, out)
	}
	l := &Linear{
		Weight: newParameter(joinName(prefix, "weight"), []int{out, in}, true),
		Bias:   newParameter(joinName(prefix, "bias"), []int{out}, true),
		in:     in,
		out:    out,
	}
	defaultInit(l.Weight.Tensor, l.Bias.Tensor, src)
	return l, nil
}

// Forward accepts [N,in] or [B,T,in]; the trailing dimension becomes out.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Shape[x.Dim()-1] != l.in {
		return nil, fmt.Errorf("linear %s: input %v does not end in %d", l.Weight.Name, x.Shape, l.in)
	}

	flat := x
	if x.Dim() != 2 {
		var err error
		if flat, err = tensor.Reshape(x, []int{-1, l.in}); err != nil {
			return nil, err
		}
	}

	y, err := tensor.MatMulT(flat, l.Weight.Tensor)
	if err != nil {
		return nil, err
	}
	if y, err = tensor.AddBias(y, l.Bias.Tensor); err != nil {
		return nil, err
	}

	if x.Dim() == 2 {
		return y, nil
	}
	shape := append(append([]int(nil), x.Shape[:x.Dim()-1]...), l.out)
	return tensor.Reshape(y, shape)
}

func (l *Linear) Parameters() []*Parameter { return []*Parameter{l.Weight, l.Bias} }
