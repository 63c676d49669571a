package models

import (
	"fmt"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// MLP projects every token independently, max-pools over time and
// classifies. The first projection has no activation; every further hidden
// layer is followed by ReLU and dropout.
type MLP struct {
	*base
	first   *layers.Linear
	hidden  []*layers.Linear
	dropout *layers.Dropout
	last    *layers.Linear
}

func NewMLP(b *base, cfg config.MLPConfig) (*MLP, error) {
	dims := cfg.HiddenDims
	m := &MLP{base: b}
	var err error
	if m.first, err = layers.NewLinear("first_fc", b.emb.Dim(), dims[0], b.src); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(dims); i++ {
		fc, err := layers.NewLinear(fmt.Sprintf("hidden_fcs.%d", i), dims[i], dims[i+1], b.src)
		if err != nil {
			return nil, err
		}
		m.hidden = append(m.hidden, fc)
	}
	if m.last, err = layers.NewLinear("last_fc", dims[len(dims)-1], OutputDim, b.src); err != nil {
		return nil, err
	}
	if m.dropout, err = layers.NewDropout(cfg.Dropout, b.dropRNG); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MLP) Forward(tokens [][]int32) (*tensor.Tensor, error) {
	x, err := m.embed(tokens)
	if err != nil {
		return nil, err
	}
	if x, err = m.first.Forward(x); err != nil {
		return nil, err
	}
	for _, fc := range m.hidden {
		if x, err = fc.Forward(x); err != nil {
			return nil, err
		}
		if x, err = tensor.ReLU(x); err != nil {
			return nil, err
		}
		if x, err = m.dropout.Forward(x, m.training); err != nil {
			return nil, err
		}
	}
	pooled, err := tensor.MaxOverTime(x)
	if err != nil {
		return nil, err
	}
	return m.last.Forward(pooled)
}

func (m *MLP) Parameters() []*layers.Parameter {
	groups := [][]*layers.Parameter{m.emb.Parameters(), m.first.Parameters()}
	for _, fc := range m.hidden {
		groups = append(groups, fc.Parameters())
	}
	groups = append(groups, m.last.Parameters())
	return collect(groups...)
}
