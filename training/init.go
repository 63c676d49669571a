package training

import (
	"fmt"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

type initFunc func(t *tensor.Tensor, src rand.Source) error

var initFuncs = map[config.InitScheme]initFunc{
	config.InitNone: func(*tensor.Tensor, rand.Source) error { return nil },
	config.InitUniform: func(t *tensor.Tensor, src rand.Source) error {
		layers.FillUniform(t, 0, 1, src)
		return nil
	},
	config.InitNormal: func(t *tensor.Tensor, src rand.Source) error {
		layers.FillNormal(t, 0, 1, src)
		return nil
	},
	config.InitXavier:  layers.XavierUniform,
	config.InitKaiming: layers.KaimingUniform,
}

// Initialize re-initialises the trainable parameters: tensors with more than
// one dimension get the scheme, the rest are zeroed. Frozen parameters are
// left alone.
func Initialize(params []*layers.Parameter, scheme config.InitScheme, src rand.Source) error {
	fill, ok := initFuncs[scheme]
	if !ok {
		return fmt.Errorf("unknown init scheme %q", scheme)
	}
	for _, p := range layers.Trainable(params) {
		if p.Tensor.Dim() <= 1 {
			layers.FillZeros(p.Tensor)
			continue
		}
		if err := fill(p.Tensor, src); err != nil {
			return fmt.Errorf("failed to initialise %s: %w", p.Name, err)
		}
	}
	return nil
}
