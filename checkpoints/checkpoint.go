package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"

	"github.com/tsawler/go-sentiment/layers"
)

// CheckpointFormat defines the serialization format
type CheckpointFormat int

const (
	FormatProto CheckpointFormat = iota
	FormatJSON
)

func (cf CheckpointFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatProto:
		return "Proto"
	default:
		return "Unknown"
	}
}

// Extension returns the file suffix used for checkpoints in this format.
func (cf CheckpointFormat) Extension() string {
	switch cf {
	case FormatJSON:
		return ".json"
	default:
		return ".ckpt"
	}
}

// ParseFormat accepts "proto" or "json".
func ParseFormat(s string) (CheckpointFormat, error) {
	switch strings.ToLower(s) {
	case "proto", "protobuf", "":
		return FormatProto, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("unknown checkpoint format %q (want proto or json)", s)
	}
}

// Checkpoint is the complete state written after one epoch: every model
// parameter (frozen ones included), the optimizer moments, the validation
// metrics of that epoch and the training progress.
type Checkpoint struct {
	Run     string         `json:"run"`
	Weights []WeightTensor `json:"weights"`

	// Training state
	TrainingState TrainingState `json:"training_state"`
	Metrics       *Metrics      `json:"metrics,omitempty"`

	// Optimizer state (if available)
	OptimizerState *OptimizerState `json:"optimizer_state,omitempty"`

	Metadata CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents a model parameter tensor with its data
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
	Layer string    `json:"layer"`
	Type  string    `json:"type"` // "weight", "bias", "weight_ih_l0", etc.
}

// TrainingState captures the current training progress
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	Step         int     `json:"step"`
	LearningRate float32 `json:"learning_rate"`
	BestLoss     float64 `json:"best_loss"`
	Strikes      int     `json:"strikes"`
}

// Metrics are the validation results of the epoch the checkpoint closes.
type Metrics struct {
	F1       float64 `json:"f1"`
	Accuracy float64 `json:"accuracy"`
	Loss     float64 `json:"loss"`
}

// OptimizerState captures optimizer-specific state (moments, step count, etc.)
type OptimizerState struct {
	Type       string             `json:"type"` // "AdamW", "SGD"
	Parameters map[string]float64 `json:"parameters"`
	StateData  []OptimizerTensor  `json:"state_data"`
}

// OptimizerTensor represents optimizer state tensors (momentum, variance, etc.)
type OptimizerTensor struct {
	Name      string    `json:"name"`
	Shape     []int     `json:"shape"`
	Data      []float32 `json:"data"`
	StateType string    `json:"state_type"` // "momentum", "variance"
}

// CheckpointMetadata contains checkpoint metadata
type CheckpointMetadata struct {
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Host        HostInfo  `json:"host"`
}

// HostInfo records the CPU a checkpoint was produced on.
type HostInfo struct {
	CPU   string `json:"cpu"`
	Cores int    `json:"cores"`
	AVX2  bool   `json:"avx2"`
}

// CurrentHost describes the machine the process is running on.
func CurrentHost() HostInfo {
	return HostInfo{
		CPU:   cpuid.CPU.BrandName,
		Cores: cpuid.CPU.LogicalCores,
		AVX2:  cpuid.CPU.Supports(cpuid.AVX2),
	}
}

func (cs *CheckpointSaver) fillMetadata(checkpoint *Checkpoint) {
	if checkpoint.Metadata.Framework == "" {
		checkpoint.Metadata.Framework = "go-sentiment"
		checkpoint.Metadata.Version = "1.0.0"
	}
	if checkpoint.Metadata.CreatedAt.IsZero() {
		checkpoint.Metadata.CreatedAt = time.Now()
	}
	if checkpoint.Metadata.Host.CPU == "" {
		checkpoint.Metadata.Host = CurrentHost()
	}
}

// CheckpointSaver handles saving model checkpoints in various formats
type CheckpointSaver struct {
	format CheckpointFormat
}

// NewCheckpointSaver creates a new checkpoint saver for the specified format
func NewCheckpointSaver(format CheckpointFormat) *CheckpointSaver {
	return &CheckpointSaver{
		format: format,
	}
}

func (cs *CheckpointSaver) Format() CheckpointFormat { return cs.format }

// SaveCheckpoint saves a complete model checkpoint
func (cs *CheckpointSaver) SaveCheckpoint(checkpoint *Checkpoint, path string) error {
	cs.fillMetadata(checkpoint)

	switch cs.format {
	case FormatJSON:
		return cs.saveJSON(checkpoint, path)
	case FormatProto:
		return cs.saveProto(checkpoint, path)
	default:
		return fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// LoadCheckpoint loads a model checkpoint
func (cs *CheckpointSaver) LoadCheckpoint(path string) (*Checkpoint, error) {
	switch cs.format {
	case FormatJSON:
		return cs.loadJSON(path)
	case FormatProto:
		return cs.loadProto(path)
	default:
		return nil, fmt.Errorf("unsupported checkpoint format: %s", cs.format.String())
	}
}

// saveJSON saves checkpoint in JSON format
func (cs *CheckpointSaver) saveJSON(checkpoint *Checkpoint, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(checkpoint); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	return nil
}

// loadJSON loads checkpoint from JSON format
func (cs *CheckpointSaver) loadJSON(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	decoder := json.NewDecoder(file)

	if err := decoder.Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// ExtractWeights copies every parameter into a WeightTensor. Layer is the
// parameter name up to its last dot and Type the remainder.
func ExtractWeights(params []*layers.Parameter) []WeightTensor {
	weights := make([]WeightTensor, 0, len(params))
	for _, p := range params {
		layer, kind := "", p.Name
		if i := strings.LastIndex(p.Name, "."); i >= 0 {
			layer, kind = p.Name[:i], p.Name[i+1:]
		}
		weights = append(weights, WeightTensor{
			Name:  p.Name,
			Shape: append([]int(nil), p.Tensor.Shape...),
			Data:  append([]float32(nil), p.Tensor.Data...),
			Layer: layer,
			Type:  kind,
		})
	}
	return weights
}

// LoadWeights copies checkpointed values into params, matched by name. Every
// parameter must be present with an identical shape.
func LoadWeights(weights []WeightTensor, params []*layers.Parameter) error {
	weightMap := make(map[string]WeightTensor, len(weights))
	for _, weight := range weights {
		weightMap[weight.Name] = weight
	}

	if len(weights) != len(params) {
		return fmt.Errorf("weight count mismatch: %d weights, %d parameters", len(weights), len(params))
	}

	for _, p := range params {
		weight, ok := weightMap[p.Name]
		if !ok {
			return fmt.Errorf("checkpoint has no weight named %s", p.Name)
		}

		tensorShape := p.Tensor.Shape
		if len(tensorShape) != len(weight.Shape) {
			return fmt.Errorf("shape mismatch for weight %s: parameter %v vs checkpoint %v",
				weight.Name, tensorShape, weight.Shape)
		}
		for j, dim := range tensorShape {
			if dim != weight.Shape[j] {
				return fmt.Errorf("dimension mismatch for weight %s at index %d: parameter %d vs checkpoint %d",
					weight.Name, j, dim, weight.Shape[j])
			}
		}

		if err := p.Tensor.CopyFrom(weight.Data); err != nil {
			return fmt.Errorf("failed to copy weight data for %s: %w", weight.Name, err)
		}
	}

	return nil
}
