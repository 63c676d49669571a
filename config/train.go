package config

import "fmt"

// InitScheme names the initialisation applied to multi-dimensional trainable
// parameters before the first epoch.
type InitScheme string

const (
	InitNone    InitScheme = "none"
	InitUniform InitScheme = "uniform"
	InitNormal  InitScheme = "normal"
	InitXavier  InitScheme = "xavier"
	InitKaiming InitScheme = "kaiming"
)

func (s InitScheme) Valid() bool {
	switch s {
	case InitNone, InitUniform, InitNormal, InitXavier, InitKaiming:
		return true
	}
	return false
}

// Optimizer names accepted by the optimizer key.
const (
	OptimizerAdamW = "adamw"
	OptimizerSGD   = "sgd"
)

// TrainConfig holds the [train] table.
type TrainConfig struct {
	Init      InitScheme `toml:"init"`
	Epochs    int        `toml:"epoch"`
	LR        float64    `toml:"lr"`
	Patience  int        `toml:"patience"`
	LossDelta float64    `toml:"loss_delta"`

	BatchSize   int     `toml:"batch_size"`
	WeightDecay float64 `toml:"weight_decay"`
	Seed        int64   `toml:"seed"`
	Optimizer   string  `toml:"optimizer"`
	Momentum    float64 `toml:"momentum"` // sgd only
}

// DefaultTrainConfig returns the values used for keys missing from [train].
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Init:        InitXavier,
		Epochs:      30,
		LR:          1e-3,
		Patience:    5,
		LossDelta:   0.01,
		BatchSize:   64,
		WeightDecay: 0.01,
		Seed:        1,
		Optimizer:   OptimizerAdamW,
	}
}

func (c TrainConfig) Validate() error {
	if !c.Init.Valid() {
		return fmt.Errorf("unknown init scheme %q (want none, uniform, normal, xavier or kaiming)", c.Init)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epoch must not be negative, got %d", c.Epochs)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be positive, got %g", c.LR)
	}
	if c.Patience <= 0 {
		return fmt.Errorf("patience must be positive, got %d", c.Patience)
	}
	if c.LossDelta < 0 {
		return fmt.Errorf("loss_delta must not be negative, got %g", c.LossDelta)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must not be negative, got %g", c.WeightDecay)
	}
	switch c.Optimizer {
	case OptimizerAdamW, OptimizerSGD:
	default:
		return fmt.Errorf("unknown optimizer %q (want adamw or sgd)", c.Optimizer)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0, 1), got %g", c.Momentum)
	}
	return nil
}
