package training

import (
	"fmt"

	"github.com/tsawler/go-sentiment/config"
	"github.com/tsawler/go-sentiment/layers"
	"github.com/tsawler/go-sentiment/optimizer"
)

// NewOptimizer builds the optimizer named by cfg over the trainable
// parameters of params.
func NewOptimizer(cfg config.TrainConfig, params []*layers.Parameter) (optimizer.Optimizer, error) {
	trainable := layers.Trainable(params)
	if len(trainable) == 0 {
		return nil, fmt.Errorf("model has no trainable parameters")
	}

	switch cfg.Optimizer {
	case config.OptimizerAdamW, "":
		c := optimizer.DefaultAdamWConfig()
		c.LearningRate = float32(cfg.LR)
		c.WeightDecay = float32(cfg.WeightDecay)
		return optimizer.NewAdamWOptimizer(c, trainable)
	case config.OptimizerSGD:
		c := optimizer.DefaultSGDConfig()
		c.LearningRate = float32(cfg.LR)
		c.Momentum = float32(cfg.Momentum)
		c.WeightDecay = float32(cfg.WeightDecay)
		return optimizer.NewSGDOptimizer(c, trainable)
	default:
		return nil, fmt.Errorf("unknown optimizer %q", cfg.Optimizer)
	}
}
