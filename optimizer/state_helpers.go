package optimizer

import (
	"fmt"

	"github.com/tsawler/go-sentiment/checkpoints"
)

// Common helper functions for optimizer state management

// extractBufferState copies one state buffer for checkpointing
func extractBufferState(buffer []float32, name string, stateType string) checkpoints.OptimizerTensor {
	return checkpoints.OptimizerTensor{
		Name:      name,
		Shape:     []int{len(buffer)},
		Data:      append([]float32(nil), buffer...),
		StateType: stateType,
	}
}

// restoreBufferState copies checkpointed state back into a buffer of the same length
func restoreBufferState(buffer []float32, data []float32, name string) error {
	if len(data) != len(buffer) {
		return fmt.Errorf("data size mismatch for %s: expected %d elements, got %d",
			name, len(buffer), len(data))
	}
	copy(buffer, data)
	return nil
}

// stateTensors indexes state tensors by name
func stateTensors(state *checkpoints.OptimizerState) map[string]checkpoints.OptimizerTensor {
	byName := make(map[string]checkpoints.OptimizerTensor, len(state.StateData))
	for _, t := range state.StateData {
		byName[t.Name] = t
	}
	return byName
}

// extractFloat32Param safely extracts a float32 parameter from the state map
func extractFloat32Param(params map[string]float64, key string, defaultValue float32) float32 {
	if val, ok := params[key]; ok {
		return float32(val)
	}
	return defaultValue
}

// extractBoolParam safely extracts a bool parameter from the state map
func extractBoolParam(params map[string]float64, key string, defaultValue bool) bool {
	if val, ok := params[key]; ok {
		return val != 0
	}
	return defaultValue
}

// extractUint64Param safely extracts a uint64 parameter from the state map
func extractUint64Param(params map[string]float64, key string, defaultValue uint64) uint64 {
	if val, ok := params[key]; ok {
		return uint64(val)
	}
	return defaultValue
}

func boolParam(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
