// Package models holds the sentiment classifiers. Each one embeds the token
// ids with a frozen table and produces logits over OutputDim classes.
package models

import (
	"fmt"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
	"github.com/tsawler/go-sentiment/training"
)

// OutputDim is the number of sentiment classes.
const OutputDim = 2

// New builds the model variant described by cfg on top of the embedding
// table. seed drives the construction-time initialisation and dropout.
func New(cfg config.ModelConfig, table *tensor.Tensor, seed uint64) (training.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", cfg.Type(), err)
	}
	emb, err := layers.NewEmbedding("embedding", table)
	if err != nil {
		return nil, err
	}
	b := newBase(emb, seed)

	switch c := cfg.(type) {
	case *config.CNNConfig:
		return NewCNN(b, *c)
	case *config.RNNConfig:
		return NewRNN(b, *c)
	case *config.MLPConfig:
		return NewMLP(b, *c)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownModelType, cfg.Type())
	}
}

// base carries what every variant shares: the frozen embedding, the random
// sources and the train/eval flag.
type base struct {
	emb      *layers.Embedding
	src      *rand.Rand // construction-time initialisation
	dropRNG  *rand.Rand
	training bool
}

func newBase(emb *layers.Embedding, seed uint64) *base {
	return &base{
		emb:      emb,
		src:      rand.New(rand.NewPCG(seed, 0x5eed)),
		dropRNG:  rand.New(rand.NewPCG(seed, 0xd209)),
		training: true,
	}
}

func (b *base) Train()           { b.training = true }
func (b *base) Eval()            { b.training = false }
func (b *base) IsTraining() bool { return b.training }
func (b *base) NumClasses() int  { return OutputDim }

func (b *base) embed(tokens [][]int32) (*tensor.Tensor, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	return b.emb.Forward(tokens)
}

func collect(groups ...[]*layers.Parameter) []*layers.Parameter {
	var out []*layers.Parameter
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
