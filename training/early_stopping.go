package training

import "math"

// EarlyStopping tracks the best validation loss and the number of strikes,
// epochs whose loss exceeded the best by more than Delta.
type EarlyStopping struct {
	Patience int
	Delta    float64
	BestLoss float64
	Strikes  int
}

func NewEarlyStopping(patience int, delta float64) *EarlyStopping {
	return &EarlyStopping{Patience: patience, Delta: delta, BestLoss: math.Inf(1)}
}

// Update records the loss of an epoch and reports whether training should
// stop. A strict improvement resets the strikes; a loss within Delta of the
// best changes nothing.
func (es *EarlyStopping) Update(loss float64) bool {
	switch {
	case loss < es.BestLoss:
		es.BestLoss = loss
		es.Strikes = 0
	case loss > es.BestLoss+es.Delta:
		es.Strikes++
		return es.Strikes >= es.Patience
	}
	return false
}
