package training

import (
	"math/rand/v2"
	"testing"

	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

// toyModel embeds tokens with a fixed 2-D table, max-pools over time and
// applies one linear layer. Token 1 maps to (1,0), token 2 to (0,1).
type toyModel struct {
	emb      *layers.Embedding
	fc       *layers.Linear
	training bool
}

func newToyModel(t *testing.T) *toyModel {
	t.Helper()
	table := tensor.MustNew([]int{4, 2}, []float32{0, 0, 1, 0, 0, 1, 1, 1})
	emb, err := layers.NewEmbedding("embedding", table)
	if err != nil {
		t.Fatalf("NewEmbedding failed: %v", err)
	}
	fc, err := layers.NewLinear("fc", 2, 2, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("NewLinear failed: %v", err)
	}
	return &toyModel{emb: emb, fc: fc, training: true}
}

// identity makes the model predict class 0 for token 1 and class 1 for token 2.
func (m *toyModel) identity() {
	copy(m.fc.Weight.Tensor.Data, []float32{1, 0, 0, 1})
	layers.FillZeros(m.fc.Bias.Tensor)
}

func (m *toyModel) Forward(tokens [][]int32) (*tensor.Tensor, error) {
	x, err := m.emb.Forward(tokens)
	if err != nil {
		return nil, err
	}
	pooled, err := tensor.MaxOverTime(x)
	if err != nil {
		return nil, err
	}
	return m.fc.Forward(pooled)
}

func (m *toyModel) Parameters() []*layers.Parameter {
	return append(m.emb.Parameters(), m.fc.Parameters()...)
}

func (m *toyModel) Train()           { m.training = true }
func (m *toyModel) Eval()            { m.training = false }
func (m *toyModel) IsTraining() bool { return m.training }
func (m *toyModel) NumClasses() int  { return 2 }

func newLoader(t *testing.T, tokens [][]int32, labels []int, batchSize int, shuffle bool) *DataLoader {
	t.Helper()
	ds, err := NewSimpleDataset(tokens, labels)
	if err != nil {
		t.Fatalf("NewSimpleDataset failed: %v", err)
	}
	dl, err := NewDataLoader(ds, batchSize, shuffle, 1)
	if err != nil {
		t.Fatalf("NewDataLoader failed: %v", err)
	}
	return dl
}
