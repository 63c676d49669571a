package tensor

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		data    []float32
		wantErr bool
	}{
		{"zeros", []int{2, 3}, nil, false},
		{"with data", []int{2}, []float32{1, 2}, false},
		{"length mismatch", []int{2, 2}, []float32{1, 2, 3}, true},
		{"zero dimension", []int{2, 0}, nil, true},
		{"empty shape", []int{}, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tensor, err := New(tc.shape, tc.data)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for shape %v", tc.shape)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tensor.NumElems != len(tensor.Data) {
				t.Errorf("NumElems %d does not match data length %d", tensor.NumElems, len(tensor.Data))
			}
		})
	}
}

func TestStridesAndAt(t *testing.T) {
	x := MustNew([]int{2, 3, 4}, nil)
	for i := range x.Data {
		x.Data[i] = float32(i)
	}
	want := []int{12, 4, 1}
	for i, s := range x.Strides {
		if s != want[i] {
			t.Errorf("stride %d = %d, want %d", i, s, want[i])
		}
	}
	v, err := x.At(1, 2, 3)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	if v != 23 {
		t.Errorf("At(1,2,3) = %v, want 23", v)
	}
	if _, err := x.At(2, 0, 0); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestReshapeInfersDimension(t *testing.T) {
	x := MustNew([]int{4, 1, 2, 3}, nil)
	y, err := Reshape(x, []int{4, -1})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if y.Shape[0] != 4 || y.Shape[1] != 6 {
		t.Errorf("shape = %v, want [4 6]", y.Shape)
	}
	if _, err := Reshape(x, []int{5, -1}); err == nil {
		t.Error("expected error for incompatible reshape")
	}
	if _, err := Reshape(x, []int{-1, -1}); err == nil {
		t.Error("expected error for two inferred dimensions")
	}
}

func TestCloneIsDetached(t *testing.T) {
	x := MustNew([]int{2}, []float32{1, 2})
	x.SetRequiresGrad(true)
	c := x.Clone()
	c.Data[0] = 9
	if x.Data[0] != 1 {
		t.Error("clone shares data with original")
	}
	if c.RequiresGrad() {
		t.Error("clone should not require grad")
	}
}

func TestUnfoldWindows(t *testing.T) {
	// one sequence of 3 steps with 2 features: [[0 1] [2 3] [4 5]]
	x := MustNew([]int{1, 3, 2}, []float32{0, 1, 2, 3, 4, 5})
	w, err := Unfold(x, 2)
	if err != nil {
		t.Fatalf("Unfold failed: %v", err)
	}
	want := []float32{0, 1, 2, 3, 2, 3, 4, 5}
	for i, v := range want {
		if w.Data[i] != v {
			t.Fatalf("window data = %v, want %v", w.Data, want)
		}
	}
	if _, err := Unfold(x, 4); err == nil {
		t.Error("expected error when the window exceeds the sequence")
	}
}

func TestArgmaxTiesPickLowestIndex(t *testing.T) {
	x := MustNew([]int{3, 2}, []float32{1, 1, 0, 2, 5, -1})
	got, err := Argmax(x)
	if err != nil {
		t.Fatalf("Argmax failed: %v", err)
	}
	want := []int{0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: argmax %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDropout(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	x, _ := Full([]int{1000}, 1)

	same, err := Dropout(x, 0, rng)
	if err != nil {
		t.Fatalf("Dropout failed: %v", err)
	}
	if same != x {
		t.Error("p=0 should return the input unchanged")
	}

	out, err := Dropout(x, 0.5, rng)
	if err != nil {
		t.Fatalf("Dropout failed: %v", err)
	}
	kept := 0
	for _, v := range out.Data {
		switch v {
		case 0:
		case 2:
			kept++
		default:
			t.Fatalf("unexpected dropout value %v", v)
		}
	}
	if kept < 400 || kept > 600 {
		t.Errorf("kept %d of 1000 activations at p=0.5", kept)
	}

	if _, err := Dropout(x, 1, rng); err == nil {
		t.Error("expected error for p=1")
	}
}

func TestIsFinite(t *testing.T) {
	x := MustNew([]int{2}, []float32{1, 2})
	if !x.IsFinite() {
		t.Error("expected finite tensor")
	}
	x.Data[1] = float32(math.Inf(1))
	if x.IsFinite() {
		t.Error("expected non-finite tensor")
	}
}

