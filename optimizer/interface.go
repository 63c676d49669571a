package optimizer

import (
	"fmt"

	"github.com/tsawler/go-sentiment/checkpoints"
	"github.com/tsawler/go-sentiment/layers"
)

// Optimizer updates a fixed list of trainable parameters from their
// accumulated gradients. State save/restore backs checkpointing.
type Optimizer interface {
	// Step applies one update. Parameters without a gradient are skipped.
	Step() error

	// ZeroGrad clears the gradients of every managed parameter
	ZeroGrad()

	// GetState extracts optimizer state for checkpointing
	GetState() (*checkpoints.OptimizerState, error)

	// LoadState restores optimizer state from checkpoint
	LoadState(state *checkpoints.OptimizerState) error

	// GetStepCount returns the current optimization step number
	GetStepCount() uint64
}

// validateStateType ensures the state type matches the optimizer
func validateStateType(optimizerType string, state *checkpoints.OptimizerState) error {
	if state == nil {
		return fmt.Errorf("no optimizer state to load")
	}
	if state.Type != optimizerType {
		return fmt.Errorf("state type mismatch: expected %s, got %s", optimizerType, state.Type)
	}
	return nil
}

func checkParams(params []*layers.Parameter) error {
	if len(params) == 0 {
		return fmt.Errorf("no parameters to optimize")
	}
	for _, p := range params {
		if !p.Trainable() {
			return fmt.Errorf("parameter %s is frozen", p.Name)
		}
	}
	return nil
}

func zeroGrad(params []*layers.Parameter) {
	for _, p := range params {
		if g := p.Tensor.Grad(); g != nil {
			for i := range g.Data {
				g.Data[i] = 0
			}
		}
	}
}
