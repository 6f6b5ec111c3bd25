package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

// Recurrent cells lower to a finite unrolled sequence of primitive
// operations: the target IR has no loop construct, so every time step
// becomes its own nodes in the output graph.
//
// Each cell accepts either a bare input tensor, in which case the
// initial state is implicitly zero, or an explicit [input, state...]
// list for stateful chaining.

type recurrentWeights struct {
	kernel    *relay.Constant // (gateUnits, in)
	recurrent *relay.Constant // (gateUnits, units)
	bias      *relay.Constant // (gateUnits), nil when the cell has none
	gateUnits int             // width of the fused gate projection
}

// loadRecurrentWeights registers the transposed kernel, recurrent
// kernel and bias of a cell. The fused kernel is stored (in, g*units)
// and becomes (g*units, in) for the dense projection, where g is 4 for
// LSTM, 3 for GRU and 1 for SimpleRNN.
func loadRecurrentWeights(layer *keras.Layer, attrs *keras.RecurrentAttrs, etab *ExprTable) (*recurrentWeights, error) {
	kernel, err := weight(layer, 0)
	if err != nil {
		return nil, err
	}
	recurrent, err := weight(layer, 1)
	if err != nil {
		return nil, err
	}
	if kernel.Rank() != 2 || recurrent.Rank() != 2 {
		return nil, fmt.Errorf("%w: recurrent kernels must be rank 2", ErrShapeConstraint)
	}

	w := &recurrentWeights{gateUnits: kernel.Shape()[1]}
	if w.kernel, err = transposedConst(etab, kernel, 1, 0); err != nil {
		return nil, err
	}
	if w.recurrent, err = transposedConst(etab, recurrent, 1, 0); err != nil {
		return nil, err
	}
	if attrs.UseBias {
		bias, err := weight(layer, 2)
		if err != nil {
			return nil, err
		}
		w.bias = etab.NewConst(bias)
	}
	return w, nil
}

// biasedDense projects data through w and adds the cell bias when the
// cell carries one.
func (w *recurrentWeights) biasedDense(data relay.Expr) relay.Expr {
	out := relay.Expr(relay.Dense(data, w.kernel, w.gateUnits))
	if w.bias != nil {
		out = relay.BiasAdd(out, w.bias)
	}
	return out
}

// zeroState registers a fresh (1, units) zero constant for the
// implicit initial state of a cell invoked without explicit state.
func zeroState(units int, etab *ExprTable) *relay.Constant {
	return etab.NewConst(tensor.Zeros(tensor.Shape{1, units}))
}

// lowerLSTM unrolls the cell over the declared time steps. Output is
// the triple (reshaped h, h, c) so a stateful caller can chain the
// carried state into a later invocation.
func lowerLSTM(inputs []relay.Expr, layer *keras.Layer, etab *ExprTable) ([]relay.Expr, error) {
	attrs, err := attrsOf[*keras.RecurrentAttrs](layer)
	if err != nil {
		return nil, err
	}

	var in, nextH, nextC relay.Expr
	switch len(inputs) {
	case 1:
		in = inputs[0]
		nextH = zeroState(attrs.Units, etab)
		nextC = zeroState(attrs.Units, etab)
	case 3:
		in, nextH, nextC = inputs[0], inputs[1], inputs[2]
	default:
		return nil, fmt.Errorf("%w: LSTM takes [input] or [input, h, c], got %d values",
			ErrShapeConstraint, len(inputs))
	}

	w, err := loadRecurrentWeights(layer, attrs, etab)
	if err != nil {
		return nil, err
	}

	inShape := keras.FillShape(layer.InputShape)
	if len(inShape) != 3 {
		return nil, fmt.Errorf("%w: LSTM expects a (batch, time, features) input shape, got %v",
			ErrShapeConstraint, layer.InputShape)
	}
	timeSteps := inShape[1]

	// Slice the sequence along the time axis and feed one step at a
	// time. Gate order within the fused projection is fixed:
	// [input, forget/transform, cell candidate, output].
	steps := relay.SplitSections(relay.Squeeze(in, []int{0}), timeSteps, 0)
	for t := 0; t < timeSteps; t++ {
		data := relay.Item(steps, t)
		ixh1 := relay.Dense(data, w.kernel, w.gateUnits)
		ixh2 := w.withBias(relay.Dense(nextH, w.recurrent, w.gateUnits))
		gate := relay.Add(ixh1, ixh2)
		gates := relay.SplitSections(gate, 4, 1)

		inGate, err := lowerActivation(relay.Item(gates, 0), attrs.RecurrentActivation, nil)
		if err != nil {
			return nil, err
		}
		inTransform, err := lowerActivation(relay.Item(gates, 1), attrs.RecurrentActivation, nil)
		if err != nil {
			return nil, err
		}
		cellCandidate, err := lowerActivation(relay.Item(gates, 2), attrs.Activation, nil)
		if err != nil {
			return nil, err
		}
		nextC = relay.Add(relay.Multiply(inTransform, nextC), relay.Multiply(inGate, cellCandidate))
		outGate, err := lowerActivation(relay.Item(gates, 3), attrs.RecurrentActivation, nil)
		if err != nil {
			return nil, err
		}
		activatedC, err := lowerActivation(nextC, attrs.Activation, nil)
		if err != nil {
			return nil, err
		}
		nextH = relay.Multiply(outGate, activatedC)
	}

	out := relay.Reshape(nextH, keras.FillShape(layer.OutputShape))
	return []relay.Expr{out, nextH, nextC}, nil
}

// withBias adds the cell bias to a projection when present.
func (w *recurrentWeights) withBias(e relay.Expr) relay.Expr {
	if w.bias != nil {
		return relay.BiasAdd(e, w.bias)
	}
	return e
}

// lowerSimpleRNN applies the single-step update
// h' = activation(dense(x, kernel) + bias + dense(h, recurrent)).
func lowerSimpleRNN(inputs []relay.Expr, layer *keras.Layer, etab *ExprTable) ([]relay.Expr, error) {
	attrs, err := attrsOf[*keras.RecurrentAttrs](layer)
	if err != nil {
		return nil, err
	}

	var in, prev relay.Expr
	switch len(inputs) {
	case 1:
		in = inputs[0]
		prev = zeroState(attrs.Units, etab)
	case 2:
		in, prev = inputs[0], inputs[1]
	default:
		return nil, fmt.Errorf("%w: SimpleRNN takes [input] or [input, state], got %d values",
			ErrShapeConstraint, len(inputs))
	}

	w, err := loadRecurrentWeights(layer, attrs, etab)
	if err != nil {
		return nil, err
	}

	ixh := w.biasedDense(relay.BatchFlatten(in))
	ixh2 := relay.Dense(relay.BatchFlatten(prev), w.recurrent, w.gateUnits)
	output, err := lowerActivation(relay.Add(ixh, ixh2), attrs.Activation, nil)
	if err != nil {
		return nil, err
	}

	out := relay.Expr(relay.Reshape(output, keras.FillShape(layer.OutputShape)))
	return []relay.Expr{out, out}, nil
}

// lowerGRU computes the gated update
//
//	z, r   = recurrent_activation(x_z + rec_z), recurrent_activation(x_r + rec_r)
//	hh     = activation(x_h + dense(r*h, recurrent_kernel[candidate]))
//	h'     = z*h + (1-z)*hh
//
// with the fused input projection split [update, reset, candidate] and
// the recurrent kernel split into the [update+reset] and [candidate]
// row blocks.
func lowerGRU(inputs []relay.Expr, layer *keras.Layer, etab *ExprTable) ([]relay.Expr, error) {
	attrs, err := attrsOf[*keras.RecurrentAttrs](layer)
	if err != nil {
		return nil, err
	}

	var in, hPrev relay.Expr
	switch len(inputs) {
	case 1:
		in = inputs[0]
		hPrev = zeroState(attrs.Units, etab)
	case 2:
		in, hPrev = inputs[0], inputs[1]
	default:
		return nil, fmt.Errorf("%w: GRU takes [input] or [input, state], got %d values",
			ErrShapeConstraint, len(inputs))
	}

	kernel, err := weight(layer, 0)
	if err != nil {
		return nil, err
	}
	recurrent, err := weight(layer, 1)
	if err != nil {
		return nil, err
	}
	if kernel.Rank() != 2 || recurrent.Rank() != 2 {
		return nil, fmt.Errorf("%w: recurrent kernels must be rank 2", ErrShapeConstraint)
	}
	kernelWeight, err := transposedConst(etab, kernel, 1, 0)
	if err != nil {
		return nil, err
	}
	recurrentWeight, err := transposedConst(etab, recurrent, 1, 0)
	if err != nil {
		return nil, err
	}

	units := attrs.Units
	gateUnits := kernel.Shape()[1] // 3 * units

	matrixX := relay.Expr(relay.Dense(relay.BatchFlatten(in), kernelWeight, gateUnits))
	if attrs.UseBias {
		bias, err := weight(layer, 2)
		if err != nil {
			return nil, err
		}
		matrixX = relay.BiasAdd(matrixX, etab.NewConst(bias))
	}

	// Inputs projected by all gate matrices at once.
	gates := relay.SplitIndices(matrixX, []int{units, 2 * units}, 1)
	xZ := relay.Item(gates, 0)
	xR := relay.Item(gates, 1)
	xH := relay.Item(gates, 2)

	// Hidden state projected separately for update/reset and candidate.
	recWeights := relay.SplitIndices(recurrentWeight, []int{2 * units}, 0)
	hFlat := relay.BatchFlatten(hPrev)
	matrixInner := relay.Dense(hFlat, relay.Item(recWeights, 0), 2*units)
	recurrentGates := relay.SplitIndices(matrixInner, []int{units}, 1)

	updateGate, err := lowerActivation(relay.Add(xZ, relay.Item(recurrentGates, 0)), attrs.RecurrentActivation, nil)
	if err != nil {
		return nil, err
	}
	resetGate, err := lowerActivation(relay.Add(xR, relay.Item(recurrentGates, 1)), attrs.RecurrentActivation, nil)
	if err != nil {
		return nil, err
	}

	recurrentH := relay.Dense(relay.Multiply(resetGate, hFlat), relay.Item(recWeights, 1), units)
	candidate, err := lowerActivation(relay.Add(xH, recurrentH), attrs.Activation, nil)
	if err != nil {
		return nil, err
	}

	// Previous and candidate state mixed by the update gate.
	output := relay.Add(
		relay.Multiply(updateGate, hFlat),
		relay.Multiply(relay.Subtract(relay.Const(1), updateGate), candidate),
	)
	out := relay.Expr(relay.Reshape(output, keras.FillShape(layer.OutputShape)))
	return []relay.Expr{out, out}, nil
}
