package layers

import (
	"fmt"

	"github.com/tsawler/go-sentiment/tensor"
)

// Embedding maps token ids to rows of a frozen [V,E] table.
type Embedding struct {
	Weight *Parameter
}

// NewEmbedding wraps table as a frozen embedding. The table is shared, not copied.
func NewEmbedding(prefix string, table *tensor.Tensor) (*Embedding, error) {
	if table == nil || table.Dim() != 2 {
		return nil, fmt.Errorf("embedding table must be 2D")
	}
	table.SetRequiresGrad(false)
	return &Embedding{Weight: &Parameter{Name: joinName(prefix, "weight"), Tensor: table}}, nil
}

func (e *Embedding) VocabSize() int { return e.Weight.Tensor.Shape[0] }
func (e *Embedding) Dim() int       { return e.Weight.Tensor.Shape[1] }

// Forward returns embeddings of shape [B,T,E].
func (e *Embedding) Forward(ids [][]int32) (*tensor.Tensor, error) {
	return tensor.Gather(e.Weight.Tensor, ids)
}

func (e *Embedding) Parameters() []*Parameter { return []*Parameter{e.Weight} }
