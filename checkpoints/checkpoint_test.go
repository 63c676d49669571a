package checkpoints

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
)

func testCheckpoint() *Checkpoint {
	checkpoint := &Checkpoint{
		Run: "cnn",
		Weights: []WeightTensor{
			{
				Name:  "fc.weight",
				Shape: []int{2, 300},
				Data:  make([]float32, 600),
				Layer: "fc",
				Type:  "weight",
			},
			{
				Name:  "fc.bias",
				Shape: []int{2},
				Data:  []float32{0.5, -0.25},
				Layer: "fc",
				Type:  "bias",
			},
		},
		TrainingState: TrainingState{
			Epoch:        3,
			Step:         1200,
			LearningRate: 0.001,
			BestLoss:     4.25,
			Strikes:      1,
		},
		Metrics: &Metrics{F1: 0.8125, Accuracy: 0.8, Loss: 7.2},
		OptimizerState: &OptimizerState{
			Type:       "AdamW",
			Parameters: map[string]float64{"learning_rate": 0.001, "step_count": 1200},
			StateData: []OptimizerTensor{
				{Name: "momentum_0", Shape: []int{2}, Data: []float32{0.1, 0.2}, StateType: "momentum"},
			},
		},
		Metadata: CheckpointMetadata{
			Version:     "1.0.0",
			Framework:   "go-sentiment",
			CreatedAt:   time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
			Description: "Test checkpoint",
			Tags:        []string{"test", "cnn"},
		},
	}
	for i := range checkpoint.Weights[0].Data {
		checkpoint.Weights[0].Data[i] = float32(i%100) * 0.01
	}
	return checkpoint
}

func assertSameCheckpoint(t *testing.T, want, got *Checkpoint) {
	t.Helper()

	if got.Run != want.Run {
		t.Errorf("Run mismatch: expected %s, got %s", want.Run, got.Run)
	}
	if got.TrainingState != want.TrainingState {
		t.Errorf("TrainingState mismatch: expected %+v, got %+v", want.TrainingState, got.TrainingState)
	}
	if got.Metrics == nil || *got.Metrics != *want.Metrics {
		t.Errorf("Metrics mismatch: expected %+v, got %+v", want.Metrics, got.Metrics)
	}
	if len(got.Weights) != len(want.Weights) {
		t.Fatalf("Weight count mismatch: expected %d, got %d", len(want.Weights), len(got.Weights))
	}
	for i, w := range want.Weights {
		g := got.Weights[i]
		if g.Name != w.Name || g.Layer != w.Layer || g.Type != w.Type {
			t.Errorf("weight %d header mismatch: expected %s/%s/%s, got %s/%s/%s",
				i, w.Name, w.Layer, w.Type, g.Name, g.Layer, g.Type)
		}
		if len(g.Shape) != len(w.Shape) || len(g.Data) != len(w.Data) {
			t.Fatalf("weight %s size mismatch", w.Name)
		}
		for j := range w.Data {
			if g.Data[j] != w.Data[j] {
				t.Fatalf("weight %s data mismatch at %d: expected %f, got %f", w.Name, j, w.Data[j], g.Data[j])
			}
		}
	}

	if got.OptimizerState == nil {
		t.Fatal("optimizer state was not restored")
	}
	if got.OptimizerState.Type != want.OptimizerState.Type {
		t.Errorf("optimizer type: expected %s, got %s", want.OptimizerState.Type, got.OptimizerState.Type)
	}
	if got.OptimizerState.Parameters["step_count"] != 1200 {
		t.Errorf("optimizer parameters not restored: %v", got.OptimizerState.Parameters)
	}
	if len(got.OptimizerState.StateData) != 1 || got.OptimizerState.StateData[0].Data[1] != 0.2 {
		t.Errorf("optimizer tensors not restored: %+v", got.OptimizerState.StateData)
	}

	if !got.Metadata.CreatedAt.Equal(want.Metadata.CreatedAt) {
		t.Errorf("CreatedAt mismatch: expected %v, got %v", want.Metadata.CreatedAt, got.Metadata.CreatedAt)
	}
	if len(got.Metadata.Tags) != 2 || got.Metadata.Tags[1] != "cnn" {
		t.Errorf("Tags mismatch: %v", got.Metadata.Tags)
	}
	if got.Metadata.Host != want.Metadata.Host {
		t.Errorf("Host mismatch: expected %+v, got %+v", want.Metadata.Host, got.Metadata.Host)
	}
}

func TestCheckpointSaveLoad(t *testing.T) {
	for _, format := range []CheckpointFormat{FormatJSON, FormatProto} {
		t.Run(format.String(), func(t *testing.T) {
			checkpoint := testCheckpoint()
			saver := NewCheckpointSaver(format)
			path := filepath.Join(t.TempDir(), "00"+format.Extension())

			if err := saver.SaveCheckpoint(checkpoint, path); err != nil {
				t.Fatalf("Failed to save checkpoint: %v", err)
			}
			loaded, err := saver.LoadCheckpoint(path)
			if err != nil {
				t.Fatalf("Failed to load checkpoint: %v", err)
			}
			assertSameCheckpoint(t, checkpoint, loaded)
		})
	}
}

func TestProtoIgnoresUnknownFields(t *testing.T) {
	data, err := MarshalProto(testCheckpoint())
	if err != nil {
		t.Fatalf("MarshalProto failed: %v", err)
	}
	// field 15, varint 1
	data = append(data, 15<<3, 1)

	loaded, err := UnmarshalProto(data)
	if err != nil {
		t.Fatalf("UnmarshalProto failed: %v", err)
	}
	if loaded.Run != "cnn" {
		t.Errorf("Run = %q, want cnn", loaded.Run)
	}

	if _, err := UnmarshalProto([]byte{0x0a, 0x05, 'a'}); err == nil {
		t.Error("expected error for truncated message")
	}
}

func TestCheckpointFormatString(t *testing.T) {
	tests := []struct {
		format CheckpointFormat
		name   string
		ext    string
	}{
		{FormatJSON, "JSON", ".json"},
		{FormatProto, "Proto", ".ckpt"},
		{CheckpointFormat(99), "Unknown", ".ckpt"},
	}

	for _, tc := range tests {
		if got := tc.format.String(); got != tc.name {
			t.Errorf("String() = %s, want %s", got, tc.name)
		}
		if got := tc.format.Extension(); got != tc.ext {
			t.Errorf("Extension() = %s, want %s", got, tc.ext)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat("PROTO"); err != nil || f != FormatProto {
		t.Errorf("ParseFormat(PROTO) = %v, %v", f, err)
	}
	if _, err := ParseFormat("onnx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestUnsupportedCheckpointFormat(t *testing.T) {
	saver := NewCheckpointSaver(CheckpointFormat(99))
	path := filepath.Join(t.TempDir(), "x")

	if err := saver.SaveCheckpoint(testCheckpoint(), path); err == nil {
		t.Error("Expected error for unsupported format in SaveCheckpoint")
	}
	if _, err := saver.LoadCheckpoint(path); err == nil {
		t.Error("Expected error for unsupported format in LoadCheckpoint")
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []CheckpointFormat{FormatJSON, FormatProto} {
		saver := NewCheckpointSaver(format)
		if _, err := saver.LoadCheckpoint(filepath.Join(dir, "missing")); err == nil {
			t.Errorf("%s: expected error for missing file", format)
		}
	}

	garbage := filepath.Join(dir, "garbage")
	if err := os.WriteFile(garbage, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCheckpointSaver(FormatJSON).LoadCheckpoint(garbage); err == nil {
		t.Error("expected error for invalid JSON")
	}

	if err := NewCheckpointSaver(FormatJSON).SaveCheckpoint(testCheckpoint(), filepath.Join(dir, "no", "such", "dir.json")); err == nil {
		t.Error("expected error when the directory does not exist")
	}
}

func TestCheckpointMetadataDefaults(t *testing.T) {
	checkpoint := &Checkpoint{Run: "mlp"}
	path := filepath.Join(t.TempDir(), "meta.ckpt")

	saver := NewCheckpointSaver(FormatProto)
	if err := saver.SaveCheckpoint(checkpoint, path); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}
	if checkpoint.Metadata.Framework != "go-sentiment" || checkpoint.Metadata.Version == "" {
		t.Errorf("framework metadata not filled: %+v", checkpoint.Metadata)
	}
	if checkpoint.Metadata.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on save")
	}
}

func testParams() []*layers.Parameter {
	return []*layers.Parameter{
		{Name: "embedding.weight", Tensor: tensor.MustNew([]int{3, 2}, []float32{0, 0, 1, 2, 3, 4})},
		{Name: "fc.weight", Tensor: tensor.MustNew([]int{1, 2}, []float32{0.5, -0.5})},
		{Name: "fc.bias", Tensor: tensor.MustNew([]int{1}, []float32{0.1})},
	}
}

func TestExtractAndLoadWeights(t *testing.T) {
	params := testParams()
	weights := ExtractWeights(params)
	if len(weights) != 3 {
		t.Fatalf("expected 3 weights, got %d", len(weights))
	}
	if weights[1].Layer != "fc" || weights[1].Type != "weight" {
		t.Errorf("unexpected layer/type split: %+v", weights[1])
	}

	// extracted data is a copy
	params[2].Tensor.Data[0] = 9
	if weights[2].Data[0] != 0.1 {
		t.Error("extracted weights share memory with the parameter")
	}

	if err := LoadWeights(weights, params); err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}
	if params[2].Tensor.Data[0] != 0.1 {
		t.Errorf("bias not restored: %v", params[2].Tensor.Data)
	}
}

func TestLoadWeightsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]WeightTensor) []WeightTensor
	}{
		{"missing weight", func(w []WeightTensor) []WeightTensor { return w[:2] }},
		{"renamed weight", func(w []WeightTensor) []WeightTensor { w[1].Name = "out.weight"; return w }},
		{"rank mismatch", func(w []WeightTensor) []WeightTensor { w[1].Shape = []int{2}; return w }},
		{"dimension mismatch", func(w []WeightTensor) []WeightTensor { w[1].Shape = []int{2, 1}; return w }},
		{"data length mismatch", func(w []WeightTensor) []WeightTensor { w[2].Data = []float32{1, 2}; return w }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := testParams()
			weights := tc.mutate(ExtractWeights(params))
			if err := LoadWeights(weights, params); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStoreLayout(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, FormatProto)

	if got, want := store.Path("cnn", 7), filepath.Join(root, "cnn", "07.ckpt"); got != want {
		t.Errorf("Path = %s, want %s", got, want)
	}

	if err := store.Reset("cnn"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	for epoch := 0; epoch < 3; epoch++ {
		c := testCheckpoint()
		c.TrainingState.Epoch = epoch
		if err := store.Save(c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	epochs := store.Epochs("cnn")
	if len(epochs) != 3 || epochs[2] != 2 {
		t.Errorf("Epochs = %v, want [0 1 2]", epochs)
	}

	loaded, err := store.Load("cnn", 1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.TrainingState.Epoch != 1 {
		t.Errorf("loaded epoch %d, want 1", loaded.TrainingState.Epoch)
	}

	if _, err := store.Load("cnn", 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreResetClearsPreviousRun(t *testing.T) {
	store := NewStore(t.TempDir(), FormatJSON)
	if err := store.Reset("rnn"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	c := testCheckpoint()
	c.Run = "rnn"
	if err := store.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	stray := filepath.Join(store.Dir("rnn"), "notes.txt")
	if err := os.WriteFile(stray, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := store.Reset("rnn"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	entries, err := os.ReadDir(store.Dir("rnn"))
	if err != nil {
		t.Fatalf("run directory missing after Reset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}

	if err := store.Reset(""); err == nil {
		t.Error("expected error for empty run name")
	}
}

func TestStoreLoadsOtherFormat(t *testing.T) {
	root := t.TempDir()
	if err := NewStore(root, FormatJSON).Reset("mlp"); err != nil {
		t.Fatal(err)
	}
	c := testCheckpoint()
	c.Run = "mlp"
	c.TrainingState.Epoch = 0
	if err := NewStore(root, FormatJSON).Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	proto := NewStore(root, FormatProto)
	if !proto.Exists("mlp", 0) {
		t.Error("JSON checkpoint should be visible to a proto store")
	}
	loaded, err := proto.Load("mlp", 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Metrics.F1 != 0.8125 {
		t.Errorf("F1 = %v, want 0.8125", loaded.Metrics.F1)
	}
}
