package layers

import (
	"fmt"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/tensor"
)

// Conv1D slides a k×E kernel over a [B,T,E] sequence. The weight keeps the
// [C,1,k,E] layout of a single-channel 2D convolution spanning the full
// embedding width.
type Conv1D struct {
	Weight      *Parameter
	Bias        *Parameter
	KernelSize  int
	OutChannels int
	inFeatures  int
}

func NewConv1D(prefix string, outChannels, kernelSize, inFeatures int, src rand.Source) (*Conv1D, error) {
	if outChannels <= 0 || kernelSize <= 0 || inFeatures <= 0 {
		return nil, fmt.Errorf("conv layer %q: invalid configuration (channels %d, kernel %d, features %d)",
			prefix, outChannels, kernelSize, inFeatures)
	}
	c := &Conv1D{
		Weight:      newParameter(joinName(prefix, "weight"), []int{outChannels, 1, kernelSize, inFeatures}, true),
		Bias:        newParameter(joinName(prefix, "bias"), []int{outChannels}, true),
		KernelSize:  kernelSize,
		OutChannels: outChannels,
		inFeatures:  inFeatures,
	}
	defaultInit(c.Weight.Tensor, c.Bias.Tensor, src)
	return c, nil
}

// Forward returns feature maps of shape [B, T-k+1, C].
func (c *Conv1D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Dim() != 3 || x.Shape[2] != c.inFeatures {
		return nil, fmt.Errorf("conv %s: expected [B,T,%d] input, got %v", c.Weight.Name, c.inFeatures, x.Shape)
	}
	b, t := x.Shape[0], x.Shape[1]

	windows, err := tensor.Unfold(x, c.KernelSize)
	if err != nil {
		return nil, err
	}
	kernel, err := tensor.Reshape(c.Weight.Tensor, []int{c.OutChannels, -1})
	if err != nil {
		return nil, err
	}
	y, err := tensor.MatMulT(windows, kernel)
	if err != nil {
		return nil, err
	}
	if y, err = tensor.AddBias(y, c.Bias.Tensor); err != nil {
		return nil, err
	}
	return tensor.Reshape(y, []int{b, t - c.KernelSize + 1, c.OutChannels})
}

func (c *Conv1D) Parameters() []*Parameter { return []*Parameter{c.Weight, c.Bias} }
