package checkpoints

import (
	"fmt"
	"os"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tsawler/go-sentiment/internal/wire"
)

// Field numbers of the checkpoint wire schema:
//
//	message Checkpoint {
//	  string run = 1;
//	  repeated WeightTensor weights = 2;
//	  TrainingState training_state = 3;
//	  Metrics metrics = 4;
//	  OptimizerState optimizer_state = 5;
//	  Metadata metadata = 6;
//	}
const (
	fieldRun            protowire.Number = 1
	fieldWeights        protowire.Number = 2
	fieldTrainingState  protowire.Number = 3
	fieldMetrics        protowire.Number = 4
	fieldOptimizerState protowire.Number = 5
	fieldMetadata       protowire.Number = 6
)

// saveProto saves checkpoint in protobuf wire format
func (cs *CheckpointSaver) saveProto(checkpoint *Checkpoint, path string) error {
	data, err := MarshalProto(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	return nil
}

// loadProto loads checkpoint from protobuf wire format
func (cs *CheckpointSaver) loadProto(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	checkpoint, err := UnmarshalProto(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	return checkpoint, nil
}

// MarshalProto encodes a checkpoint in protobuf wire format.
func MarshalProto(c *Checkpoint) ([]byte, error) {
	var b []byte
	b = wire.AppendString(b, fieldRun, c.Run)
	for _, w := range c.Weights {
		b = wire.AppendMessage(b, fieldWeights, marshalWeight(w))
	}
	b = wire.AppendMessage(b, fieldTrainingState, marshalTrainingState(c.TrainingState))
	if c.Metrics != nil {
		b = wire.AppendMessage(b, fieldMetrics, marshalMetrics(*c.Metrics))
	}
	if c.OptimizerState != nil {
		b = wire.AppendMessage(b, fieldOptimizerState, marshalOptimizerState(c.OptimizerState))
	}
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return nil, err
	}
	return wire.AppendMessage(b, fieldMetadata, meta), nil
}

// UnmarshalProto decodes a checkpoint written by MarshalProto. Unknown fields
// are skipped.
func UnmarshalProto(data []byte) (*Checkpoint, error) {
	c := &Checkpoint{}
	err := wire.Parse(data, func(f wire.Field) error {
		switch f.Num {
		case fieldRun:
			c.Run = f.String()
		case fieldWeights:
			w, err := unmarshalWeight(f.Bytes)
			if err != nil {
				return err
			}
			c.Weights = append(c.Weights, w)
		case fieldTrainingState:
			return unmarshalTrainingState(f.Bytes, &c.TrainingState)
		case fieldMetrics:
			c.Metrics = &Metrics{}
			return unmarshalMetrics(f.Bytes, c.Metrics)
		case fieldOptimizerState:
			c.OptimizerState = &OptimizerState{Parameters: map[string]float64{}}
			return unmarshalOptimizerState(f.Bytes, c.OptimizerState)
		case fieldMetadata:
			return unmarshalMetadata(f.Bytes, &c.Metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// message WeightTensor { string name = 1; repeated int64 shape = 2; repeated float data = 3; string layer = 4; string type = 5; }
func marshalWeight(w WeightTensor) []byte {
	var b []byte
	b = wire.AppendString(b, 1, w.Name)
	b = wire.AppendPackedInts(b, 2, w.Shape)
	b = wire.AppendPackedFloat32s(b, 3, w.Data)
	b = wire.AppendString(b, 4, w.Layer)
	return wire.AppendString(b, 5, w.Type)
}

func unmarshalWeight(data []byte) (WeightTensor, error) {
	var w WeightTensor
	err := wire.Parse(data, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			w.Name = f.String()
		case 2:
			w.Shape, err = wire.ParsePackedInts(f.Bytes)
		case 3:
			w.Data, err = wire.ParsePackedFloat32s(f.Bytes)
		case 4:
			w.Layer = f.String()
		case 5:
			w.Type = f.String()
		}
		return err
	})
	return w, err
}

// message TrainingState { int64 epoch = 1; int64 step = 2; float learning_rate = 3; double best_loss = 4; int64 strikes = 5; }
func marshalTrainingState(s TrainingState) []byte {
	var b []byte
	b = wire.AppendInt(b, 1, s.Epoch)
	b = wire.AppendInt(b, 2, s.Step)
	b = wire.AppendFloat32(b, 3, s.LearningRate)
	b = wire.AppendFloat64(b, 4, s.BestLoss)
	return wire.AppendInt(b, 5, s.Strikes)
}

func unmarshalTrainingState(data []byte, s *TrainingState) error {
	return wire.Parse(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			s.Epoch = f.Int()
		case 2:
			s.Step = f.Int()
		case 3:
			s.LearningRate = f.Float32()
		case 4:
			s.BestLoss = f.Float64()
		case 5:
			s.Strikes = f.Int()
		}
		return nil
	})
}

// message Metrics { double f1 = 1; double accuracy = 2; double loss = 3; }
func marshalMetrics(m Metrics) []byte {
	var b []byte
	b = wire.AppendFloat64(b, 1, m.F1)
	b = wire.AppendFloat64(b, 2, m.Accuracy)
	return wire.AppendFloat64(b, 3, m.Loss)
}

func unmarshalMetrics(data []byte, m *Metrics) error {
	return wire.Parse(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			m.F1 = f.Float64()
		case 2:
			m.Accuracy = f.Float64()
		case 3:
			m.Loss = f.Float64()
		}
		return nil
	})
}

// message OptimizerState { string type = 1; repeated Param parameters = 2; repeated OptimizerTensor state_data = 3; }
// message Param { string key = 1; double value = 2; }
// message OptimizerTensor { string name = 1; repeated int64 shape = 2; repeated float data = 3; string state_type = 4; }
func marshalOptimizerState(s *OptimizerState) []byte {
	var b []byte
	b = wire.AppendString(b, 1, s.Type)

	// sorted so identical states encode identically
	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry []byte
		entry = wire.AppendString(entry, 1, k)
		entry = wire.AppendFloat64(entry, 2, s.Parameters[k])
		b = wire.AppendMessage(b, 2, entry)
	}

	for _, t := range s.StateData {
		var tb []byte
		tb = wire.AppendString(tb, 1, t.Name)
		tb = wire.AppendPackedInts(tb, 2, t.Shape)
		tb = wire.AppendPackedFloat32s(tb, 3, t.Data)
		tb = wire.AppendString(tb, 4, t.StateType)
		b = wire.AppendMessage(b, 3, tb)
	}
	return b
}

func unmarshalOptimizerState(data []byte, s *OptimizerState) error {
	return wire.Parse(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			s.Type = f.String()
		case 2:
			var key string
			var value float64
			err := wire.Parse(f.Bytes, func(e wire.Field) error {
				switch e.Num {
				case 1:
					key = e.String()
				case 2:
					value = e.Float64()
				}
				return nil
			})
			if err != nil {
				return err
			}
			s.Parameters[key] = value
		case 3:
			var t OptimizerTensor
			err := wire.Parse(f.Bytes, func(e wire.Field) error {
				var err error
				switch e.Num {
				case 1:
					t.Name = e.String()
				case 2:
					t.Shape, err = wire.ParsePackedInts(e.Bytes)
				case 3:
					t.Data, err = wire.ParsePackedFloat32s(e.Bytes)
				case 4:
					t.StateType = e.String()
				}
				return err
			})
			if err != nil {
				return err
			}
			s.StateData = append(s.StateData, t)
		}
		return nil
	})
}

// message Metadata {
//	string version = 1; string framework = 2; google.protobuf.Timestamp created_at = 3;
//	string description = 4; repeated string tags = 5; Host host = 6;
// }
// message Host { string cpu = 1; int64 cores = 2; bool avx2 = 3; }
func marshalMetadata(m CheckpointMetadata) ([]byte, error) {
	var b []byte
	b = wire.AppendString(b, 1, m.Version)
	b = wire.AppendString(b, 2, m.Framework)
	b, err := wire.AppendTimestamp(b, 3, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	b = wire.AppendString(b, 4, m.Description)
	b = wire.AppendRepeatedString(b, 5, m.Tags)

	var host []byte
	host = wire.AppendString(host, 1, m.Host.CPU)
	host = wire.AppendInt(host, 2, m.Host.Cores)
	host = wire.AppendBool(host, 3, m.Host.AVX2)
	return wire.AppendMessage(b, 6, host), nil
}

func unmarshalMetadata(data []byte, m *CheckpointMetadata) error {
	return wire.Parse(data, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			m.Version = f.String()
		case 2:
			m.Framework = f.String()
		case 3:
			m.CreatedAt, err = wire.ParseTimestamp(f.Bytes)
		case 4:
			m.Description = f.String()
		case 5:
			m.Tags = append(m.Tags, f.String())
		case 6:
			err = wire.Parse(f.Bytes, func(h wire.Field) error {
				switch h.Num {
				case 1:
					m.Host.CPU = h.String()
				case 2:
					m.Host.Cores = h.Int()
				case 3:
					m.Host.AVX2 = h.Bool()
				}
				return nil
			})
		}
		return err
	})
}
