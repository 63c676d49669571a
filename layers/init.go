package layers

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tsawler/go-sentiment/tensor"
)

// FanInOut computes fan-in and fan-out the way PyTorch does: dimension 1 is
// the input, dimension 0 the output, and trailing dimensions form the
// receptive field.
func FanInOut(shape []int) (int, int, error) {
	if len(shape) < 2 {
		return 0, 0, fmt.Errorf("fan in and fan out can not be computed for tensor with fewer than 2 dimensions, got %v", shape)
	}
	receptive := 1
	for _, d := range shape[2:] {
		receptive *= d
	}
	return shape[1] * receptive, shape[0] * receptive, nil
}

// FillUniform draws every element from U(lo, hi).
func FillUniform(t *tensor.Tensor, lo, hi float64, src rand.Source) {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: src}
	for i := range t.Data {
		t.Data[i] = float32(dist.Rand())
	}
}

// FillNormal draws every element from N(mean, std²).
func FillNormal(t *tensor.Tensor, mean, std float64, src rand.Source) {
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: src}
	for i := range t.Data {
		t.Data[i] = float32(dist.Rand())
	}
}

// FillZeros sets every element to zero.
func FillZeros(t *tensor.Tensor) {
	for i := range t.Data {
		t.Data[i] = 0
	}
}

// XavierUniform fills t from U(-a, a) with a = sqrt(6 / (fan_in + fan_out)).
func XavierUniform(t *tensor.Tensor, src rand.Source) error {
	fanIn, fanOut, err := FanInOut(t.Shape)
	if err != nil {
		return err
	}
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	FillUniform(t, -bound, bound, src)
	return nil
}

// KaimingUniform fills t for a ReLU network: U(-b, b) with b = sqrt(6 / fan_in).
func KaimingUniform(t *tensor.Tensor, src rand.Source) error {
	fanIn, _, err := FanInOut(t.Shape)
	if err != nil {
		return err
	}
	gain := math.Sqrt(2)
	bound := math.Sqrt(3) * gain / math.Sqrt(float64(fanIn))
	FillUniform(t, -bound, bound, src)
	return nil
}

// defaultInit mirrors the construction-time initialisation of PyTorch linear
// and convolution layers: weight and bias from U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func defaultInit(weight, bias *tensor.Tensor, src rand.Source) {
	fanIn, _, _ := FanInOut(weight.Shape)
	bound := 1 / math.Sqrt(float64(fanIn))
	FillUniform(weight, -bound, bound, src)
	if bias != nil {
		FillUniform(bias, -bound, bound, src)
	}
}
