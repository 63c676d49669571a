package tensor

import (
	"math"
	"math/rand/v2"
	"testing"
)

func randomTensor(rng *rand.Rand, shape []int, requiresGrad bool) *Tensor {
	t := MustNew(shape, nil)
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64())
	}
	t.SetRequiresGrad(requiresGrad)
	return t
}

// weightedSum reduces x to a scalar with fixed random weights so that every
// element receives a distinct upstream gradient.
func weightedSum(t *testing.T, x *Tensor, weights []float32) *Tensor {
	t.Helper()
	flat, err := Reshape(x, []int{1, x.NumElems})
	if err != nil {
		t.Fatalf("reshape failed: %v", err)
	}
	w := MustNew([]int{1, x.NumElems}, weights)
	out, err := MatMulT(flat, w)
	if err != nil {
		t.Fatalf("matmul failed: %v", err)
	}
	return out
}

// checkGradients compares analytic gradients of f against central differences.
func checkGradients(t *testing.T, f func() *Tensor, params ...*Tensor) {
	t.Helper()

	ZeroGrad(params)
	out := f()
	if err := out.Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	const eps = 1e-3
	const tol = 2e-2
	for p, param := range params {
		if param.Grad() == nil {
			t.Fatalf("param %d: no gradient accumulated", p)
		}
		for i := range param.Data {
			orig := param.Data[i]
			param.Data[i] = orig + eps
			plus := f().Data[0]
			param.Data[i] = orig - eps
			minus := f().Data[0]
			param.Data[i] = orig

			numeric := float64(plus-minus) / (2 * eps)
			analytic := float64(param.Grad().Data[i])
			if math.Abs(numeric-analytic) > tol*math.Max(1, math.Abs(numeric)) {
				t.Errorf("param %d element %d: analytic %.5f, numeric %.5f", p, i, analytic, numeric)
			}
		}
	}
}

func randomWeights(rng *rand.Rand, n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(rng.NormFloat64())
	}
	return w
}

func TestLinearActivationGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := randomTensor(rng, []int{3, 4}, true)
	w := randomTensor(rng, []int{5, 4}, true)
	b := randomTensor(rng, []int{5}, true)
	weights := randomWeights(rng, 15)

	tests := []struct {
		name       string
		activation func(*Tensor) (*Tensor, error)
	}{
		{"Tanh", Tanh},
		{"Sigmoid", Sigmoid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checkGradients(t, func() *Tensor {
				y, err := MatMulT(x, w)
				if err != nil {
					t.Fatalf("MatMulT failed: %v", err)
				}
				y, err = AddBias(y, b)
				if err != nil {
					t.Fatalf("AddBias failed: %v", err)
				}
				y, err = tc.activation(y)
				if err != nil {
					t.Fatalf("activation failed: %v", err)
				}
				return weightedSum(t, y, weights)
			}, x, w, b)
		})
	}
}

func TestElementwiseGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	a := randomTensor(rng, []int{2, 3}, true)
	b := randomTensor(rng, []int{2, 3}, true)
	weights := randomWeights(rng, 6)

	checkGradients(t, func() *Tensor {
		sum, err := Add(a, b)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		prod, err := Mul(sum, a)
		if err != nil {
			t.Fatalf("Mul failed: %v", err)
		}
		return weightedSum(t, prod, weights)
	}, a, b)
}

func TestConvolutionPathGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	x := randomTensor(rng, []int{2, 5, 3}, true)
	kernel := randomTensor(rng, []int{4, 1, 2, 3}, true)
	weights := randomWeights(rng, 8)

	checkGradients(t, func() *Tensor {
		windows, err := Unfold(x, 2)
		if err != nil {
			t.Fatalf("Unfold failed: %v", err)
		}
		flatKernel, err := Reshape(kernel, []int{4, -1})
		if err != nil {
			t.Fatalf("Reshape failed: %v", err)
		}
		y, err := MatMulT(windows, flatKernel)
		if err != nil {
			t.Fatalf("MatMulT failed: %v", err)
		}
		y, err = Reshape(y, []int{2, 4, 4})
		if err != nil {
			t.Fatalf("Reshape failed: %v", err)
		}
		pooled, err := MaxOverTime(y)
		if err != nil {
			t.Fatalf("MaxOverTime failed: %v", err)
		}
		return weightedSum(t, pooled, weights)
	}, x, kernel)
}

func TestSequencePlumbingGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	seq := randomTensor(rng, []int{2, 3, 4}, true)
	weights := randomWeights(rng, 2*3*3)

	checkGradients(t, func() *Tensor {
		var steps []*Tensor
		for s := 2; s >= 0; s-- {
			step, err := TimeStep(seq, s)
			if err != nil {
				t.Fatalf("TimeStep failed: %v", err)
			}
			left, err := SliceCols(step, 0, 1)
			if err != nil {
				t.Fatalf("SliceCols failed: %v", err)
			}
			right, err := SliceCols(step, 2, 4)
			if err != nil {
				t.Fatalf("SliceCols failed: %v", err)
			}
			joined, err := Concat(right, left)
			if err != nil {
				t.Fatalf("Concat failed: %v", err)
			}
			steps = append(steps, joined)
		}
		stacked, err := StackSteps(steps)
		if err != nil {
			t.Fatalf("StackSteps failed: %v", err)
		}
		return weightedSum(t, stacked, weights)
	}, seq)
}

func TestGatherGradients(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	table := randomTensor(rng, []int{4, 3}, true)
	ids := [][]int32{{0, 2, 2}, {3, 1, 0}}
	weights := randomWeights(rng, 18)

	checkGradients(t, func() *Tensor {
		emb, err := Gather(table, ids)
		if err != nil {
			t.Fatalf("Gather failed: %v", err)
		}
		return weightedSum(t, emb, weights)
	}, table)
}

func TestCrossEntropy(t *testing.T) {
	logits := MustNew([]int{2, 2}, []float32{0, 0, 3, 1})
	loss, err := CrossEntropy(logits, []int{0, 0})
	if err != nil {
		t.Fatalf("CrossEntropy failed: %v", err)
	}

	// mean of ln 2 and ln(1 + e^-2)
	want := (math.Log(2) + math.Log(1+math.Exp(-2))) / 2
	if got := float64(loss.Data[0]); math.Abs(got-want) > 1e-6 {
		t.Errorf("loss = %.7f, want %.7f", got, want)
	}

	rng := rand.New(rand.NewPCG(11, 12))
	x := randomTensor(rng, []int{4, 3}, true)
	checkGradients(t, func() *Tensor {
		loss, err := CrossEntropy(x, []int{0, 2, 1, 2})
		if err != nil {
			t.Fatalf("CrossEntropy failed: %v", err)
		}
		return loss
	}, x)

	if _, err := CrossEntropy(logits, []int{0, 2}); err == nil {
		t.Error("expected error for out-of-range label")
	}
}

func TestNoGradSkipsGraph(t *testing.T) {
	w := MustNew([]int{2, 2}, []float32{1, 2, 3, 4})
	w.SetRequiresGrad(true)
	x := MustNew([]int{1, 2}, []float32{1, 1})

	var out *Tensor
	err := NoGrad(func() error {
		var err error
		out, err = MatMulT(x, w)
		return err
	})
	if err != nil {
		t.Fatalf("NoGrad body failed: %v", err)
	}
	if out.Creator() != nil {
		t.Error("expected no creator inside NoGrad")
	}
	if !GradEnabled() {
		t.Error("grad recording should be re-enabled after NoGrad returns")
	}

	out, err = MatMulT(x, w)
	if err != nil {
		t.Fatalf("MatMulT failed: %v", err)
	}
	if out.Creator() == nil {
		t.Error("expected creator outside NoGrad")
	}
}

func TestFrozenInputsProduceNoGraph(t *testing.T) {
	table := MustNew([]int{3, 2}, []float32{1, 2, 3, 4, 5, 6})
	out, err := Gather(table, [][]int32{{0, 1}})
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if out.Creator() != nil {
		t.Error("gather from a frozen table should not record a graph")
	}
	if err := out.Backward(); err == nil {
		t.Error("expected error for backward on a non-scalar tensor")
	}
}

func TestGradientsAccumulateUntilZeroed(t *testing.T) {
	w := MustNew([]int{1, 2}, []float32{1, 1})
	w.SetRequiresGrad(true)
	x := MustNew([]int{1, 2}, []float32{2, 3})

	for i := 0; i < 2; i++ {
		out, err := MatMulT(x, w)
		if err != nil {
			t.Fatalf("MatMulT failed: %v", err)
		}
		if err := out.Backward(); err != nil {
			t.Fatalf("backward failed: %v", err)
		}
	}
	if got := w.Grad().Data; got[0] != 4 || got[1] != 6 {
		t.Errorf("accumulated grad = %v, want [4 6]", got)
	}

	ZeroGrad([]*Tensor{w})
	if got := w.Grad().Data; got[0] != 0 || got[1] != 0 {
		t.Errorf("grad after ZeroGrad = %v, want zeros", got)
	}
}
