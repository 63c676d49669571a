package models

import (
	"fmt"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// CNN applies one convolution per kernel width over the embedded sequence,
// max-pools every feature map over time and classifies the concatenation.
type CNN struct {
	*base
	convs     []*layers.Conv1D
	dropout   *layers.Dropout
	fc        *layers.Linear
	maxKernel int
}

func NewCNN(b *base, cfg config.CNNConfig) (*CNN, error) {
	m := &CNN{base: b, maxKernel: cfg.MaxKernel()}
	for i, k := range cfg.KernelSizes {
		conv, err := layers.NewConv1D(fmt.Sprintf("conv.%d", i), cfg.OutChannels, k, b.emb.Dim(), b.src)
		if err != nil {
			return nil, err
		}
		m.convs = append(m.convs, conv)
	}

	var err error
	if m.dropout, err = layers.NewDropout(cfg.Dropout, b.dropRNG); err != nil {
		return nil, err
	}
	if m.fc, err = layers.NewLinear("fc", cfg.OutChannels*len(cfg.KernelSizes), OutputDim, b.src); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CNN) Forward(tokens [][]int32) (*tensor.Tensor, error) {
	x, err := m.embed(padRows(tokens, m.maxKernel))
	if err != nil {
		return nil, err
	}

	pooled := make([]*tensor.Tensor, len(m.convs))
	for i, conv := range m.convs {
		y, err := conv.Forward(x)
		if err != nil {
			return nil, err
		}
		if y, err = tensor.ReLU(y); err != nil {
			return nil, err
		}
		if pooled[i], err = tensor.MaxOverTime(y); err != nil {
			return nil, err
		}
	}

	features, err := tensor.Concat(pooled...)
	if err != nil {
		return nil, err
	}
	if features, err = m.dropout.Forward(features, m.training); err != nil {
		return nil, err
	}
	return m.fc.Forward(features)
}

func (m *CNN) Parameters() []*layers.Parameter {
	groups := [][]*layers.Parameter{m.emb.Parameters()}
	for _, conv := range m.convs {
		groups = append(groups, conv.Parameters())
	}
	groups = append(groups, m.fc.Parameters())
	return collect(groups...)
}

// padRows right-pads every row with the padding id up to width when the
// batch is narrower than that.
func padRows(tokens [][]int32, width int) [][]int32 {
	if len(tokens) == 0 || len(tokens[0]) >= width {
		return tokens
	}
	out := make([][]int32, len(tokens))
	for i, row := range tokens {
		padded := make([]int32, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
