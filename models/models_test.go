package models

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/tensor"
	"github.com/tsawler/go-sentiment/training"
)

func testTable() *tensor.Tensor {
	data := make([]float32, 6*4)
	for i := range data {
		data[i] = float32(i%7)/7 - 0.4
	}
	return tensor.MustNew([]int{6, 4}, data)
}

var batch = [][]int32{{1, 2, 3, 4, 5}, {5, 4, 0, 0, 0}}

func testConfigs() map[string]config.ModelConfig {
	return map[string]config.ModelConfig{
		"cnn": &config.CNNConfig{OutChannels: 3, KernelSizes: []int{2, 3}, Dropout: 0.5},
		"rnn": &config.RNNConfig{HiddenDim: 3, NumLayers: 2, Dropout: 0.5},
		"mlp": &config.MLPConfig{HiddenDims: []int{5, 3}, Dropout: 0.5},
	}
}

func paramNames(params []*layers.Parameter) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

func TestParameterLayout(t *testing.T) {
	want := map[string][]string{
		"cnn": {"embedding.weight", "conv.0.weight", "conv.0.bias", "conv.1.weight", "conv.1.bias", "fc.weight", "fc.bias"},
		"mlp": {"embedding.weight", "first_fc.weight", "first_fc.bias", "hidden_fcs.0.weight", "hidden_fcs.0.bias", "last_fc.weight", "last_fc.bias"},
	}

	for name, cfg := range testConfigs() {
		t.Run(name, func(t *testing.T) {
			m, err := New(cfg, testTable(), 1)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			params := m.Parameters()
			if names, ok := want[name]; ok && !reflect.DeepEqual(paramNames(params), names) {
				t.Errorf("parameters = %v, want %v", paramNames(params), names)
			}
			if params[0].Trainable() {
				t.Error("embedding must be frozen")
			}
			if len(layers.Trainable(params)) != len(params)-1 {
				t.Error("every parameter except the embedding should be trainable")
			}
			if m.NumClasses() != OutputDim {
				t.Errorf("NumClasses() = %d", m.NumClasses())
			}
		})
	}
}

func TestRNNParameterShapes(t *testing.T) {
	m, err := New(&config.RNNConfig{HiddenDim: 3, NumLayers: 2, Dropout: 0}, testTable(), 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	params := m.Parameters()
	// embedding + 2 layers x 2 directions x 4 tensors + fc
	if len(params) != 1+16+2 {
		t.Fatalf("got %d parameters", len(params))
	}
	if params[1].Name != "rnn.weight_ih_l0" || !reflect.DeepEqual(params[1].Tensor.Shape, []int{12, 4}) {
		t.Errorf("first LSTM weight = %s %v", params[1].Name, params[1].Tensor.Shape)
	}
	fc := params[len(params)-2]
	if fc.Name != "fc.weight" || !reflect.DeepEqual(fc.Tensor.Shape, []int{2, 6}) {
		t.Errorf("fc weight = %s %v", fc.Name, fc.Tensor.Shape)
	}
}

func TestForwardShapes(t *testing.T) {
	for name, cfg := range testConfigs() {
		t.Run(name, func(t *testing.T) {
			m, err := New(cfg, testTable(), 1)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			logits, err := m.Forward(batch)
			if err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
			if !reflect.DeepEqual(logits.Shape, []int{2, OutputDim}) {
				t.Errorf("logits shape = %v", logits.Shape)
			}

			m.Eval()
			a, _ := m.Forward(batch)
			b, _ := m.Forward(batch)
			if !reflect.DeepEqual(a.Data, b.Data) {
				t.Error("evaluation mode should be deterministic")
			}
		})
	}
}

func TestCNNPadsShortSequences(t *testing.T) {
	m, err := New(&config.CNNConfig{OutChannels: 2, KernelSizes: []int{3, 5}, Dropout: 0}, testTable(), 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logits, err := m.Forward([][]int32{{1}, {2}})
	if err != nil {
		t.Fatalf("Forward on sequences shorter than the kernel failed: %v", err)
	}
	if logits.Shape[0] != 2 {
		t.Errorf("logits shape = %v", logits.Shape)
	}
}

func TestGradientsReachTrainableParameters(t *testing.T) {
	for name, cfg := range testConfigs() {
		t.Run(name, func(t *testing.T) {
			m, err := New(cfg, testTable(), 1)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			params := m.Parameters()
			tensor.ZeroGrad(layers.Tensors(params))

			logits, err := m.Forward(batch)
			if err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
			loss, err := tensor.CrossEntropy(logits, []int{0, 1})
			if err != nil {
				t.Fatalf("CrossEntropy failed: %v", err)
			}
			if err := loss.Backward(); err != nil {
				t.Fatalf("Backward failed: %v", err)
			}

			if params[0].Tensor.Grad() != nil {
				t.Error("frozen embedding received a gradient")
			}
			last := params[len(params)-2]
			if last.Tensor.Grad() == nil {
				t.Errorf("%s received no gradient", last.Name)
			}
		})
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	for name, cfg := range testConfigs() {
		t.Run(name, func(t *testing.T) {
			src, err := New(cfg, testTable(), 1)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			dst, err := New(cfg, testTable(), 99)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := checkpoints.LoadWeights(checkpoints.ExtractWeights(src.Parameters()), dst.Parameters()); err != nil {
				t.Fatalf("LoadWeights failed: %v", err)
			}

			src.Eval()
			dst.Eval()
			a, _ := src.Forward(batch)
			b, _ := dst.Forward(batch)
			if !reflect.DeepEqual(a.Data, b.Data) {
				t.Errorf("restored model disagrees: %v vs %v", a.Data, b.Data)
			}
		})
	}
}

type bogusConfig struct{}

func (bogusConfig) Type() config.ModelType { return "transformer" }
func (bogusConfig) Validate() error        { return nil }

func TestNewErrors(t *testing.T) {
	if _, err := New(bogusConfig{}, testTable(), 1); !errors.Is(err, config.ErrUnknownModelType) {
		t.Errorf("expected ErrUnknownModelType, got %v", err)
	}
	if _, err := New(&config.CNNConfig{OutChannels: 0, KernelSizes: []int{3}}, testTable(), 1); err == nil {
		t.Error("expected error for invalid config")
	}

	var _ training.Model = (*CNN)(nil)
	var _ training.Model = (*RNN)(nil)
	var _ training.Model = (*MLP)(nil)
}
