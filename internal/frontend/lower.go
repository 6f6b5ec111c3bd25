package frontend

import (
	"fmt"
	"math"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

// lowerLayer dispatches one call-site of a layer to its lowering rule
// and returns the produced output values, one per output slot. The
// switch is exhaustive over the closed kind set.
//
//nolint:gocyclo // one case per layer kind; splitting would obscure the dispatch.
func lowerLayer(inputs []relay.Expr, layer *keras.Layer, etab *ExprTable) ([]relay.Expr, error) {
	one := func(e relay.Expr, err error) ([]relay.Expr, error) {
		if err != nil {
			return nil, err
		}
		return []relay.Expr{e}, nil
	}

	switch layer.Kind {
	case keras.KindInput, keras.KindDropout, keras.KindSpatialDropout1D, keras.KindSpatialDropout2D:
		// Train-time-only layers pass through untouched.
		return inputs, nil

	case keras.KindDense:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerDense(in, layer, etab))

	case keras.KindActivation:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		attrs, err := attrsOf[*keras.ActivationAttrs](layer)
		if err != nil {
			return nil, err
		}
		return one(lowerActivation(in, attrs.Activation, attrs))

	case keras.KindReLU, keras.KindLeakyReLU, keras.KindPReLU, keras.KindELU, keras.KindThresholdedReLU:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerAdvancedActivation(in, layer, etab))

	case keras.KindConv2D, keras.KindConv2DTranspose, keras.KindDepthwiseConv2D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerConvolution(in, layer, etab))

	case keras.KindSeparableConv2D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerSeparableConvolution(in, layer, etab))

	case keras.KindMaxPooling2D, keras.KindAveragePooling2D,
		keras.KindGlobalMaxPooling2D, keras.KindGlobalAveragePooling2D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerPooling(in, layer))

	case keras.KindFlatten:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerFlatten(in, layer), nil)

	case keras.KindReshape:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerReshape(in, layer))

	case keras.KindConcatenate:
		// Channel axis after the channels-last to channel-first change.
		return one(relay.Concatenate(inputs, 1), nil)

	case keras.KindBatchNormalization:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerBatchNorm(in, layer, etab))

	case keras.KindAdd, keras.KindSubtract, keras.KindMultiply, keras.KindAverage, keras.KindMaximum:
		return one(lowerMerge(inputs, layer))

	case keras.KindZeroPadding2D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerZeroPadding(in, layer))

	case keras.KindZeroPadding1D:
		return nil, fmt.Errorf("%w: ZeroPadding1D not implemented", ErrUnsupportedVariant)

	case keras.KindCropping2D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerCropping(in, layer))

	case keras.KindCropping1D:
		return nil, fmt.Errorf("%w: Cropping1D not implemented", ErrUnsupportedVariant)

	case keras.KindUpSampling1D, keras.KindUpSampling2D, keras.KindUpSampling3D:
		in, err := soleInput(inputs, layer)
		if err != nil {
			return nil, err
		}
		return one(lowerUpsampling(in, layer))

	case keras.KindSimpleRNN:
		return lowerSimpleRNN(inputs, layer, etab)

	case keras.KindLSTM:
		return lowerLSTM(inputs, layer, etab)

	case keras.KindGRU:
		return lowerGRU(inputs, layer, etab)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayer, layer.Kind)
	}
}

// soleInput unwraps the single resolved input of a layer that takes
// exactly one.
func soleInput(inputs []relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%w: layer %q expects 1 input, got %d",
			ErrShapeConstraint, layer.Name, len(inputs))
	}
	return inputs[0], nil
}

// attrsOf asserts the kind-specific attribute record of a layer.
func attrsOf[A keras.Attrs](layer *keras.Layer) (A, error) {
	a, ok := layer.Attrs.(A)
	if !ok {
		var zero A
		return zero, fmt.Errorf("%w: layer %q lacks %T", ErrMissingAttribute, layer.Name, zero)
	}
	return a, nil
}

// weight returns the i-th learned array of a layer.
func weight(layer *keras.Layer, i int) (*tensor.Array, error) {
	if i >= len(layer.Weights) {
		return nil, fmt.Errorf("%w: layer %q has %d weight arrays, need at least %d",
			ErrMissingAttribute, layer.Name, len(layer.Weights), i+1)
	}
	return layer.Weights[i], nil
}

// transposedConst registers a weight array under the given axis
// permutation and returns the constant referencing it.
func transposedConst(etab *ExprTable, arr *tensor.Array, axes ...int) (*relay.Constant, error) {
	t, err := arr.Transpose(axes)
	if err != nil {
		return nil, err
	}
	return etab.NewConst(t), nil
}

func lowerDense(in relay.Expr, layer *keras.Layer, etab *ExprTable) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.DenseAttrs](layer)
	if err != nil {
		return nil, err
	}
	kernel, err := weight(layer, 0)
	if err != nil {
		return nil, err
	}
	if kernel.Rank() != 2 {
		return nil, fmt.Errorf("%w: dense kernel must be rank 2, got %v",
			ErrShapeConstraint, kernel.Shape())
	}
	units := kernel.Shape()[1]
	weightExpr, err := transposedConst(etab, kernel, 1, 0)
	if err != nil {
		return nil, err
	}

	// A rank > 2 input must be the (1, 1, n) slot of a recurrent
	// sequence: squeeze it flat, apply, and re-expand afterwards.
	inputDim := len(layer.InputShape)
	if inputDim > 2 {
		shape := keras.FillShape(layer.InputShape)
		if inputDim != 3 || shape[0] != 1 || shape[1] != 1 {
			return nil, fmt.Errorf("%w: cannot flatten input shape %v for dense",
				ErrShapeConstraint, shape)
		}
		in = relay.Squeeze(in, []int{0})
	}

	out := relay.Expr(relay.Dense(in, weightExpr, units))
	if attrs.UseBias {
		bias, err := weight(layer, 1)
		if err != nil {
			return nil, err
		}
		out = relay.BiasAdd(out, etab.NewConst(bias))
	}
	if attrs.Activation != "linear" {
		out, err = lowerActivation(out, attrs.Activation, nil)
		if err != nil {
			return nil, err
		}
	}
	if inputDim > 2 {
		out = relay.ExpandDims(out, 0)
	}
	return out, nil
}

// lowerFlatten moves channels back to the trailing axis before
// collapsing, so that downstream dense weights line up with the
// channels-last order they were trained in.
func lowerFlatten(in relay.Expr, layer *keras.Layer) relay.Expr {
	if len(layer.InputShape) == 4 {
		in = relay.Transpose(in, []int{0, 2, 3, 1})
	}
	return relay.BatchFlatten(in)
}

func lowerReshape(in relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.ReshapeAttrs](layer)
	if err != nil {
		return nil, err
	}
	if len(layer.InputShape) == 0 || len(attrs.TargetShape) == 0 {
		return nil, fmt.Errorf("%w: reshape needs declared input and target shapes", ErrShapeConstraint)
	}
	ch := layer.InputShape[len(layer.InputShape)-1]
	if ch != attrs.TargetShape[len(attrs.TargetShape)-1] {
		return nil, fmt.Errorf("%w: reshape target %v must keep the input channel count %d last",
			ErrShapeConstraint, attrs.TargetShape, ch)
	}
	newshape := append([]int{-1, ch}, attrs.TargetShape[:len(attrs.TargetShape)-1]...)
	return relay.Reshape(in, newshape), nil
}

func lowerMerge(inputs []relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: merge layer %q has no inputs", ErrShapeConstraint, layer.Name)
	}
	ret := inputs[0]

	switch layer.Kind {
	case keras.KindSubtract:
		if len(inputs) != 2 {
			return nil, fmt.Errorf("%w: Subtract merge takes 2 inputs, got %d",
				ErrShapeConstraint, len(inputs))
		}
		return relay.Subtract(ret, inputs[1]), nil

	case keras.KindAdd:
		for _, in := range inputs[1:] {
			ret = relay.Add(ret, in)
		}
	case keras.KindMultiply:
		for _, in := range inputs[1:] {
			ret = relay.Multiply(ret, in)
		}
	case keras.KindMaximum:
		for _, in := range inputs[1:] {
			ret = relay.Maximum(ret, in)
		}
	case keras.KindAverage:
		for _, in := range inputs[1:] {
			ret = relay.Add(ret, in)
		}
		ret = relay.Divide(ret, relay.Const(float32(len(inputs))))
	default:
		return nil, fmt.Errorf("%w: merge type %s", ErrUnsupportedVariant, layer.Kind)
	}
	return ret, nil
}

func lowerBatchNorm(in relay.Expr, layer *keras.Layer, etab *ExprTable) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.BatchNormAttrs](layer)
	if err != nil {
		return nil, err
	}

	// Learned arrays arrive in the fixed order [gamma?, beta?,
	// moving_mean, moving_var]; the cursor advances only past arrays
	// that are actually present.
	idx := 0
	gamma := relay.Expr(relay.Const(1))
	beta := relay.Expr(relay.Const(0))
	if attrs.Scale {
		w, err := weight(layer, idx)
		if err != nil {
			return nil, err
		}
		gamma = etab.NewConst(w)
		idx++
	}
	if attrs.Center {
		w, err := weight(layer, idx)
		if err != nil {
			return nil, err
		}
		beta = etab.NewConst(w)
		idx++
	}
	mean, err := weight(layer, idx)
	if err != nil {
		return nil, err
	}
	variance, err := weight(layer, idx+1)
	if err != nil {
		return nil, err
	}

	// Inference mode only: the stored statistics are frozen.
	bn := relay.BatchNorm(in,
		gamma, beta,
		etab.NewConst(mean), etab.NewConst(variance),
		attrs.Epsilon, attrs.Center, attrs.Scale)
	return relay.Item(bn, 0), nil
}

func lowerZeroPadding(in relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.ZeroPadding2DAttrs](layer)
	if err != nil {
		return nil, err
	}
	return relay.Pad(in, [][2]int{
		{0, 0},
		{0, 0},
		{attrs.Top, attrs.Bottom},
		{attrs.Left, attrs.Right},
	}), nil
}

func lowerCropping(in relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.Cropping2DAttrs](layer)
	if err != nil {
		return nil, err
	}
	if len(layer.InputShape) != 4 {
		return nil, fmt.Errorf("%w: Cropping2D expects a rank-4 input shape, got %v",
			ErrShapeConstraint, layer.InputShape)
	}
	shape := keras.FillShape(layer.InputShape)
	inH, inW := shape[1], shape[2]
	return relay.StridedSlice(in,
		[]int{0, 0, attrs.Top, attrs.Left},
		[]int{math.MaxInt32, math.MaxInt32, inH - attrs.Bottom, inW - attrs.Right},
	), nil
}

func lowerUpsampling(in relay.Expr, layer *keras.Layer) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.UpSamplingAttrs](layer)
	if err != nil {
		return nil, err
	}
	if len(attrs.Size) == 0 {
		return nil, fmt.Errorf("%w: upsampling layer %q has no scale factors",
			ErrMissingAttribute, layer.Name)
	}
	for _, s := range attrs.Size[1:] {
		if s != attrs.Size[0] {
			return nil, fmt.Errorf("%w: upsampling with unequal axis factors %v",
				ErrUnsupportedVariant, attrs.Size)
		}
	}
	return relay.Upsampling(in, attrs.Size[0]), nil
}
