package layers

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tsawler/go-sentiment/tensor"
)

// lstmCell holds the weights of one direction of one LSTM layer. Gates are
// packed in the order input, forget, cell, output.
type lstmCell struct {
	weightIH *Parameter // [4H, in]
	weightHH *Parameter // [4H, H]
	biasIH   *Parameter // [4H]
	biasHH   *Parameter // [4H]
	hidden   int
	reverse  bool
}

func newLSTMCell(prefix string, layer, in, hidden int, reverse bool) *lstmCell {
	suffix := fmt.Sprintf("_l%d", layer)
	if reverse {
		suffix += "_reverse"
	}
	return &lstmCell{
		weightIH: newParameter(joinName(prefix, "weight_ih"+suffix), []int{4 * hidden, in}, true),
		weightHH: newParameter(joinName(prefix, "weight_hh"+suffix), []int{4 * hidden, hidden}, true),
		biasIH:   newParameter(joinName(prefix, "bias_ih"+suffix), []int{4 * hidden}, true),
		biasHH:   newParameter(joinName(prefix, "bias_hh"+suffix), []int{4 * hidden}, true),
		hidden:   hidden,
		reverse:  reverse,
	}
}

func (c *lstmCell) parameters() []*Parameter {
	return []*Parameter{c.weightIH, c.weightHH, c.biasIH, c.biasHH}
}

// run unrolls the cell over x [B,T,in] and returns the hidden state of every
// timestep in sequence order.
func (c *lstmCell) run(x *tensor.Tensor) ([]*tensor.Tensor, error) {
	b, t, in := x.Shape[0], x.Shape[1], x.Shape[2]
	h4 := 4 * c.hidden

	// input projections for all timesteps in one matmul
	flat, err := tensor.Reshape(x, []int{b * t, in})
	if err != nil {
		return nil, err
	}
	proj, err := tensor.MatMulT(flat, c.weightIH.Tensor)
	if err != nil {
		return nil, err
	}
	if proj, err = tensor.AddBias(proj, c.biasIH.Tensor); err != nil {
		return nil, err
	}
	if proj, err = tensor.AddBias(proj, c.biasHH.Tensor); err != nil {
		return nil, err
	}
	if proj, err = tensor.Reshape(proj, []int{b, t, h4}); err != nil {
		return nil, err
	}

	outputs := make([]*tensor.Tensor, t)
	var h, cell *tensor.Tensor
	for n := 0; n < t; n++ {
		step := n
		if c.reverse {
			step = t - 1 - n
		}
		gates, err := tensor.TimeStep(proj, step)
		if err != nil {
			return nil, err
		}
		if h != nil {
			rec, err := tensor.MatMulT(h, c.weightHH.Tensor)
			if err != nil {
				return nil, err
			}
			if gates, err = tensor.Add(gates, rec); err != nil {
				return nil, err
			}
		}

		h, cell, err = c.gate(gates, cell)
		if err != nil {
			return nil, err
		}
		outputs[step] = h
	}
	return outputs, nil
}

// gate applies the LSTM update to pre-activations [B,4H]. A nil cell state
// stands for the zero initial state.
func (c *lstmCell) gate(gates, cell *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	hd := c.hidden
	slice := func(k int, act func(*tensor.Tensor) (*tensor.Tensor, error)) (*tensor.Tensor, error) {
		g, err := tensor.SliceCols(gates, k*hd, (k+1)*hd)
		if err != nil {
			return nil, err
		}
		return act(g)
	}

	i, err := slice(0, tensor.Sigmoid)
	if err != nil {
		return nil, nil, err
	}
	f, err := slice(1, tensor.Sigmoid)
	if err != nil {
		return nil, nil, err
	}
	g, err := slice(2, tensor.Tanh)
	if err != nil {
		return nil, nil, err
	}
	o, err := slice(3, tensor.Sigmoid)
	if err != nil {
		return nil, nil, err
	}

	next, err := tensor.Mul(i, g)
	if err != nil {
		return nil, nil, err
	}
	if cell != nil {
		kept, err := tensor.Mul(f, cell)
		if err != nil {
			return nil, nil, err
		}
		if next, err = tensor.Add(kept, next); err != nil {
			return nil, nil, err
		}
	}

	squashed, err := tensor.Tanh(next)
	if err != nil {
		return nil, nil, err
	}
	h, err := tensor.Mul(o, squashed)
	if err != nil {
		return nil, nil, err
	}
	return h, next, nil
}

// BiLSTM is a stack of bidirectional LSTM layers with zero initial state.
// Layer l > 0 consumes the concatenated [forward, backward] output of layer l-1.
type BiLSTM struct {
	Hidden    int
	NumLayers int
	forward   []*lstmCell
	backward  []*lstmCell
}

// NewBiLSTM creates the layers with every weight drawn from U(-1/sqrt(H), 1/sqrt(H)).
func NewBiLSTM(prefix string, in, hidden, numLayers int, src rand.Source) (*BiLSTM, error) {
	if in <= 0 || hidden <= 0 || numLayers <= 0 {
		return nil, fmt.Errorf("lstm %q: invalid configuration (input %d, hidden %d, layers %d)",
			prefix, in, hidden, numLayers)
	}
	l := &BiLSTM{Hidden: hidden, NumLayers: numLayers}
	for layer := 0; layer < numLayers; layer++ {
		width := in
		if layer > 0 {
			width = 2 * hidden
		}
		l.forward = append(l.forward, newLSTMCell(prefix, layer, width, hidden, false))
		l.backward = append(l.backward, newLSTMCell(prefix, layer, width, hidden, true))
	}

	bound := 1 / math.Sqrt(float64(hidden))
	for _, p := range l.Parameters() {
		FillUniform(p.Tensor, -bound, bound, src)
	}
	return l, nil
}

// Forward returns the top layer output [B,T,2H].
func (l *BiLSTM) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Dim() != 3 {
		return nil, fmt.Errorf("lstm expects [B,T,E] input, got %v", x.Shape)
	}
	out := x
	for layer := 0; layer < l.NumLayers; layer++ {
		fwd, err := l.forward[layer].run(out)
		if err != nil {
			return nil, fmt.Errorf("lstm layer %d forward direction: %w", layer, err)
		}
		bwd, err := l.backward[layer].run(out)
		if err != nil {
			return nil, fmt.Errorf("lstm layer %d reverse direction: %w", layer, err)
		}

		steps := make([]*tensor.Tensor, len(fwd))
		for s := range fwd {
			if steps[s], err = tensor.Concat(fwd[s], bwd[s]); err != nil {
				return nil, err
			}
		}
		if out, err = tensor.StackSteps(steps); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Parameters lists weights per layer, forward direction before reverse.
func (l *BiLSTM) Parameters() []*Parameter {
	var params []*Parameter
	for layer := range l.forward {
		params = append(params, l.forward[layer].parameters()...)
		params = append(params, l.backward[layer].parameters()...)
	}
	return params
}
