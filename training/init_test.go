package training

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
)

func TestInitializeNone(t *testing.T) {
	m := newToyModel(t)
	weight := append([]float32(nil), m.fc.Weight.Tensor.Data...)
	table := append([]float32(nil), m.emb.Weight.Tensor.Data...)

	if err := Initialize(m.Parameters(), config.InitNone, rand.NewPCG(1, 2)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	for i, v := range m.fc.Weight.Tensor.Data {
		if math.Float32bits(v) != math.Float32bits(weight[i]) {
			t.Fatalf("weight changed at %d: %v -> %v", i, weight[i], v)
		}
	}
	for _, v := range m.fc.Bias.Tensor.Data {
		if v != 0 {
			t.Fatalf("bias should be zeroed, got %v", m.fc.Bias.Tensor.Data)
		}
	}
	for i, v := range m.emb.Weight.Tensor.Data {
		if v != table[i] {
			t.Fatal("frozen embedding must not be touched")
		}
	}
}

func TestInitializeSchemes(t *testing.T) {
	tests := []struct {
		scheme config.InitScheme
		lo, hi float32
	}{
		{config.InitUniform, 0, 1},
		{config.InitXavier, -float32(math.Sqrt(6.0 / 4.0)), float32(math.Sqrt(6.0 / 4.0))},
		{config.InitKaiming, -float32(math.Sqrt(3.0)), float32(math.Sqrt(3.0))},
		{config.InitNormal, -10, 10},
	}

	for _, tc := range tests {
		t.Run(string(tc.scheme), func(t *testing.T) {
			m := newToyModel(t)
			if err := Initialize(m.Parameters(), tc.scheme, rand.NewPCG(3, 4)); err != nil {
				t.Fatalf("Initialize failed: %v", err)
			}
			for _, v := range m.fc.Weight.Tensor.Data {
				if v < tc.lo || v > tc.hi {
					t.Errorf("value %v outside [%v, %v]", v, tc.lo, tc.hi)
				}
			}
			for _, v := range m.fc.Bias.Tensor.Data {
				if v != 0 {
					t.Errorf("bias should be zeroed, got %v", v)
				}
			}
		})
	}
}

func TestInitializeUnknownScheme(t *testing.T) {
	m := newToyModel(t)
	if err := Initialize(m.Parameters(), config.InitScheme("orthogonal"), rand.NewPCG(1, 1)); err == nil {
		t.Error("expected error for unknown scheme")
	}
	if len(layers.Trainable(m.Parameters())) != 2 {
		t.Error("toy model should have two trainable parameters")
	}
}
