package models

import (
	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// RNN runs a stacked bidirectional LSTM and classifies the output at the
// last timestep.
type RNN struct {
	*base
	lstm    *layers.BiLSTM
	dropout *layers.Dropout
	fc      *layers.Linear
}

func NewRNN(b *base, cfg config.RNNConfig) (*RNN, error) {
	m := &RNN{base: b}
	var err error
	if m.lstm, err = layers.NewBiLSTM("rnn", b.emb.Dim(), cfg.HiddenDim, cfg.NumLayers, b.src); err != nil {
		return nil, err
	}
	if m.dropout, err = layers.NewDropout(cfg.Dropout, b.dropRNG); err != nil {
		return nil, err
	}
	if m.fc, err = layers.NewLinear("fc", 2*cfg.HiddenDim, OutputDim, b.src); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *RNN) Forward(tokens [][]int32) (*tensor.Tensor, error) {
	x, err := m.embed(tokens)
	if err != nil {
		return nil, err
	}
	out, err := m.lstm.Forward(x)
	if err != nil {
		return nil, err
	}
	last, err := tensor.TimeStep(out, out.Shape[1]-1)
	if err != nil {
		return nil, err
	}
	if last, err = m.dropout.Forward(last, m.training); err != nil {
		return nil, err
	}
	return m.fc.Forward(last)
}

func (m *RNN) Parameters() []*layers.Parameter {
	return collect(m.emb.Parameters(), m.lstm.Parameters(), m.fc.Parameters())
}
