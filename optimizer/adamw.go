package optimizer

import (
	"fmt"
	"math"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/layers"
)

// AdamWOptimizerState is Adam with decoupled weight decay: every step first
// shrinks the weights by lr*weight_decay, then applies the bias-corrected
// Adam update.
type AdamWOptimizerState struct {
	// Hyperparameters
	LearningRate float32
	Beta1        float32 // Momentum decay (typically 0.9)
	Beta2        float32 // Variance decay (typically 0.999)
	Epsilon      float32 // Small constant to prevent division by zero (typically 1e-8)
	WeightDecay  float32 // Decoupled decay coefficient

	MomentumBuffers [][]float32 // First moment for each parameter
	VarianceBuffers [][]float32 // Second moment for each parameter

	// Step tracking for bias correction
	StepCount uint64

	params []*layers.Parameter
}

// AdamWConfig holds configuration for the AdamW optimizer
type AdamWConfig struct {
	LearningRate float32
	Beta1        float32
	Beta2        float32
	Epsilon      float32
	WeightDecay  float32
}

// DefaultAdamWConfig returns the PyTorch AdamW defaults
func DefaultAdamWConfig() AdamWConfig {
	return AdamWConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.01,
	}
}

// NewAdamWOptimizer creates an AdamW optimizer over params, all of which must be trainable.
func NewAdamWOptimizer(config AdamWConfig, params []*layers.Parameter) (*AdamWOptimizerState, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}
	if config.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %g", config.LearningRate)
	}
	if config.Beta1 < 0 || config.Beta1 >= 1 || config.Beta2 < 0 || config.Beta2 >= 1 {
		return nil, fmt.Errorf("betas must be in [0, 1), got %g and %g", config.Beta1, config.Beta2)
	}

	adam := &AdamWOptimizerState{
		LearningRate:    config.LearningRate,
		Beta1:           config.Beta1,
		Beta2:           config.Beta2,
		Epsilon:         config.Epsilon,
		WeightDecay:     config.WeightDecay,
		MomentumBuffers: make([][]float32, len(params)),
		VarianceBuffers: make([][]float32, len(params)),
		params:          params,
	}
	for i, p := range params {
		adam.MomentumBuffers[i] = make([]float32, p.Tensor.NumElems)
		adam.VarianceBuffers[i] = make([]float32, p.Tensor.NumElems)
	}
	return adam, nil
}

// Step performs a single AdamW optimization step
func (adam *AdamWOptimizerState) Step() error {
	adam.StepCount++

	lr := float64(adam.LearningRate)
	beta1, beta2 := float64(adam.Beta1), float64(adam.Beta2)
	eps := float64(adam.Epsilon)
	decay := 1 - lr*float64(adam.WeightDecay)

	step := float64(adam.StepCount)
	biasCorrection1 := 1 - math.Pow(beta1, step)
	biasCorrection2Sqrt := math.Sqrt(1 - math.Pow(beta2, step))
	stepSize := lr / biasCorrection1

	for i, p := range adam.params {
		grad := p.Tensor.Grad()
		if grad == nil {
			continue
		}
		weights := p.Tensor.Data
		m, v := adam.MomentumBuffers[i], adam.VarianceBuffers[i]

		for j, g32 := range grad.Data {
			g := float64(g32)
			if math.IsNaN(g) || math.IsInf(g, 0) {
				return fmt.Errorf("non-finite gradient in %s at step %d", p.Name, adam.StepCount)
			}

			w := float64(weights[j]) * decay
			mj := beta1*float64(m[j]) + (1-beta1)*g
			vj := beta2*float64(v[j]) + (1-beta2)*g*g
			denom := math.Sqrt(vj)/biasCorrection2Sqrt + eps

			weights[j] = float32(w - stepSize*mj/denom)
			m[j] = float32(mj)
			v[j] = float32(vj)
		}
	}
	return nil
}

func (adam *AdamWOptimizerState) ZeroGrad() { zeroGrad(adam.params) }

// GetStepCount returns the current step count
func (adam *AdamWOptimizerState) GetStepCount() uint64 {
	return adam.StepCount
}

// GetState extracts optimizer state for checkpointing
func (adam *AdamWOptimizerState) GetState() (*checkpoints.OptimizerState, error) {
	stateData := make([]checkpoints.OptimizerTensor, 0, 2*len(adam.params))
	for i := range adam.params {
		stateData = append(stateData,
			extractBufferState(adam.MomentumBuffers[i], fmt.Sprintf("momentum_%d", i), "momentum"),
			extractBufferState(adam.VarianceBuffers[i], fmt.Sprintf("variance_%d", i), "variance"),
		)
	}

	return &checkpoints.OptimizerState{
		Type: "AdamW",
		Parameters: map[string]float64{
			"learning_rate": float64(adam.LearningRate),
			"beta1":         float64(adam.Beta1),
			"beta2":         float64(adam.Beta2),
			"epsilon":       float64(adam.Epsilon),
			"weight_decay":  float64(adam.WeightDecay),
			"step_count":    float64(adam.StepCount),
		},
		StateData: stateData,
	}, nil
}

// LoadState restores optimizer state from checkpoint
func (adam *AdamWOptimizerState) LoadState(state *checkpoints.OptimizerState) error {
	if err := validateStateType("AdamW", state); err != nil {
		return err
	}

	byName := stateTensors(state)
	for i := range adam.params {
		for _, buf := range []struct {
			name   string
			buffer []float32
		}{
			{fmt.Sprintf("momentum_%d", i), adam.MomentumBuffers[i]},
			{fmt.Sprintf("variance_%d", i), adam.VarianceBuffers[i]},
		} {
			t, ok := byName[buf.name]
			if !ok {
				return fmt.Errorf("missing optimizer state %s", buf.name)
			}
			if err := restoreBufferState(buf.buffer, t.Data, buf.name); err != nil {
				return err
			}
		}
	}

	adam.LearningRate = extractFloat32Param(state.Parameters, "learning_rate", adam.LearningRate)
	adam.Beta1 = extractFloat32Param(state.Parameters, "beta1", adam.Beta1)
	adam.Beta2 = extractFloat32Param(state.Parameters, "beta2", adam.Beta2)
	adam.Epsilon = extractFloat32Param(state.Parameters, "epsilon", adam.Epsilon)
	adam.WeightDecay = extractFloat32Param(state.Parameters, "weight_decay", adam.WeightDecay)
	adam.StepCount = extractUint64Param(state.Parameters, "step_count", adam.StepCount)
	return nil
}
