// Package config loads run configurations from TOML files. A file holds a
// [model] table selecting one architecture by its type key and an optional
// [train] table with the hyperparameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrUnknownModelType is returned for a [model] type other than cnn, rnn or mlp.
var ErrUnknownModelType = errors.New("unknown model type")

// Config is one parsed configuration file.
type Config struct {
	// Name is the file stem; checkpoints of the run are stored under it.
	Name  string
	Model ModelConfig
	Train TrainConfig
}

type rawConfig struct {
	Model toml.Primitive `toml:"model"`
	Train toml.Primitive `toml:"train"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(string(data), RunName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// RunName returns the file name of path without directory and extension.
func RunName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse decodes a TOML document. Train keys that are not recognised are
// ignored; unrecognised model keys are an error.
func Parse(data, name string) (*Config, error) {
	var raw rawConfig
	md, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	if !md.IsDefined("model") {
		return nil, fmt.Errorf("missing [model] table")
	}

	model, err := decodeModel(md, raw.Model)
	if err != nil {
		return nil, err
	}
	for _, key := range md.Undecoded() {
		if len(key) > 1 && key[0] == "model" {
			return nil, fmt.Errorf("unknown option %q for %s model", key[len(key)-1], model.Type())
		}
	}

	train := DefaultTrainConfig()
	if md.IsDefined("train") {
		if err := md.PrimitiveDecode(raw.Train, &train); err != nil {
			return nil, fmt.Errorf("invalid [train] table: %w", err)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [model] table: %w", err)
	}
	if err := train.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [train] table: %w", err)
	}

	return &Config{Name: name, Model: model, Train: train}, nil
}

func decodeModel(md toml.MetaData, prim toml.Primitive) (ModelConfig, error) {
	var head struct {
		Type string `toml:"type"`
	}
	if err := md.PrimitiveDecode(prim, &head); err != nil {
		return nil, fmt.Errorf("invalid [model] table: %w", err)
	}

	var model ModelConfig
	switch ModelType(head.Type) {
	case CNN:
		c := DefaultCNNConfig()
		model = &c
	case RNN:
		c := DefaultRNNConfig()
		model = &c
	case MLP:
		c := DefaultMLPConfig()
		model = &c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, head.Type)
	}

	if err := md.PrimitiveDecode(prim, model); err != nil {
		return nil, fmt.Errorf("invalid [model] table: %w", err)
	}
	return model, nil
}
