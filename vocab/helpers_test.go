package vocab

import (
	"math/rand/v2"
	"testing"

	"github.com/tsawler/go-sentiment/tensor"
)

func testSource() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func testVocab(t *testing.T) *Vocab {
	t.Helper()
	table := tensor.MustNew([]int{4, 2}, []float32{0.5, -0.5, 1, 2, 3, 4, -1, -2})
	v, err := newVocab([]string{"", "good", "movie", "bad"}, table)
	if err != nil {
		t.Fatalf("newVocab failed: %v", err)
	}
	return v
}
