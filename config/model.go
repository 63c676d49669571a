package config

import "fmt"

// ModelType selects the architecture of a [model] table.
type ModelType string

const (
	CNN ModelType = "cnn"
	RNN ModelType = "rnn"
	MLP ModelType = "mlp"
)

// ModelConfig is implemented by *CNNConfig, *RNNConfig and *MLPConfig.
type ModelConfig interface {
	Type() ModelType
	Validate() error
}

// CNNConfig describes a text CNN: one convolution per kernel width over the
// embedded sequence, max-pooled over time.
type CNNConfig struct {
	OutChannels int     `toml:"out_channels"`
	KernelSizes []int   `toml:"kernel_sizes"`
	Dropout     float64 `toml:"dropout"`
}

func DefaultCNNConfig() CNNConfig {
	return CNNConfig{OutChannels: 100, KernelSizes: []int{3, 4, 5}, Dropout: 0.5}
}

func (c *CNNConfig) Type() ModelType { return CNN }

func (c *CNNConfig) Validate() error {
	if c.OutChannels <= 0 {
		return fmt.Errorf("out_channels must be positive, got %d", c.OutChannels)
	}
	if len(c.KernelSizes) == 0 {
		return fmt.Errorf("kernel_sizes must not be empty")
	}
	for _, k := range c.KernelSizes {
		if k <= 0 {
			return fmt.Errorf("kernel sizes must be positive, got %d", k)
		}
	}
	return validateDropout(c.Dropout)
}

// MaxKernel is the widest kernel, the shortest sequence the model accepts.
func (c *CNNConfig) MaxKernel() int {
	m := 0
	for _, k := range c.KernelSizes {
		m = max(m, k)
	}
	return m
}

// RNNConfig describes a stacked bidirectional LSTM classifier.
type RNNConfig struct {
	HiddenDim int     `toml:"hidden_dim"`
	NumLayers int     `toml:"num_layers"`
	Dropout   float64 `toml:"dropout"`
}

func DefaultRNNConfig() RNNConfig {
	return RNNConfig{HiddenDim: 128, NumLayers: 1, Dropout: 0.5}
}

func (c *RNNConfig) Type() ModelType { return RNN }

func (c *RNNConfig) Validate() error {
	if c.HiddenDim <= 0 {
		return fmt.Errorf("hidden_dim must be positive, got %d", c.HiddenDim)
	}
	if c.NumLayers <= 0 {
		return fmt.Errorf("num_layers must be positive, got %d", c.NumLayers)
	}
	return validateDropout(c.Dropout)
}

// MLPConfig describes a per-token MLP followed by max pooling over time.
type MLPConfig struct {
	HiddenDims []int   `toml:"hidden_dims"`
	Dropout    float64 `toml:"dropout"`
}

func DefaultMLPConfig() MLPConfig {
	return MLPConfig{HiddenDims: []int{128}, Dropout: 0.5}
}

func (c *MLPConfig) Type() ModelType { return MLP }

func (c *MLPConfig) Validate() error {
	if len(c.HiddenDims) == 0 {
		return fmt.Errorf("hidden_dims must not be empty")
	}
	for _, d := range c.HiddenDims {
		if d <= 0 {
			return fmt.Errorf("hidden dims must be positive, got %d", d)
		}
	}
	return validateDropout(c.Dropout)
}

func validateDropout(p float64) error {
	if p < 0 || p >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", p)
	}
	return nil
}
