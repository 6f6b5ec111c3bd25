package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
)

// lowerConvolution handles Conv2D, Conv2DTranspose and DepthwiseConv2D.
// Keras kernels are stored channels-last; each variant is transposed
// into the (out, in, kh, kw) layout of the channel-first convolution.
func lowerConvolution(in relay.Expr, layer *keras.Layer, etab *ExprTable) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.ConvAttrs](layer)
	if err != nil {
		return nil, err
	}
	kernel, err := weight(layer, 0)
	if err != nil {
		return nil, err
	}
	if kernel.Rank() != 4 {
		return nil, fmt.Errorf("%w: convolution kernel must be rank 4, got %v",
			ErrShapeConstraint, kernel.Shape())
	}
	ks := kernel.Shape()
	kernelH, kernelW := ks[0], ks[1]

	var weightExpr *relay.Constant
	conv := relay.Conv2DAttrs{
		KernelSize: [2]int{kernelH, kernelW},
		Strides:    attrs.Strides,
		Dilation:   attrs.DilationRate,
	}
	switch layer.Kind {
	case keras.KindConv2DTranspose:
		// (kh, kw, out, in) -> (in, out, kh, kw): the transposed
		// convolution swaps the filter axes relative to Conv2D.
		conv.Channels = ks[2]
		weightExpr, err = transposedConst(etab, kernel, 3, 2, 0, 1)
	case keras.KindDepthwiseConv2D:
		// (kh, kw, in, mult): the depth multiplier axis becomes the
		// output channel block of each input-channel group.
		inChannels, depthMult := ks[2], ks[3]
		conv.Channels = inChannels * depthMult
		conv.Groups = inChannels
		weightExpr, err = transposedConst(etab, kernel, 2, 3, 0, 1)
	default:
		conv.Channels = ks[3]
		weightExpr, err = transposedConst(etab, kernel, 3, 2, 0, 1)
	}
	if err != nil {
		return nil, err
	}

	dilatedH := (kernelH-1)*attrs.DilationRate[0] + 1
	dilatedW := (kernelW-1)*attrs.DilationRate[1] + 1
	data := in
	data, conv.Padding, err = applySamePadding(data, layer, attrs.Padding,
		[2]int{dilatedH, dilatedW}, attrs.Strides)
	if err != nil {
		return nil, err
	}

	var out relay.Expr
	if layer.Kind == keras.KindConv2DTranspose {
		out = relay.Conv2DTranspose(data, weightExpr, conv)
	} else {
		out = relay.Conv2D(data, weightExpr, conv)
	}

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
	return out, nil
}

// lowerSeparableConvolution expands SeparableConv2D into a depthwise
// convolution followed by a 1x1 pointwise convolution. Bias and the
// fused activation apply after the pointwise stage only.
func lowerSeparableConvolution(in relay.Expr, layer *keras.Layer, etab *ExprTable) (relay.Expr, error) {
	attrs, err := attrsOf[*keras.ConvAttrs](layer)
	if err != nil {
		return nil, err
	}
	depthKernel, err := weight(layer, 0)
	if err != nil {
		return nil, err
	}
	pointKernel, err := weight(layer, 1)
	if err != nil {
		return nil, err
	}
	if depthKernel.Rank() != 4 || pointKernel.Rank() != 4 {
		return nil, fmt.Errorf("%w: separable convolution kernels must be rank 4",
			ErrShapeConstraint)
	}

	ks := depthKernel.Shape()
	kernelH, kernelW, inChannels, depthMult := ks[0], ks[1], ks[2], ks[3]

	depthWeight, err := transposedConst(etab, depthKernel, 2, 3, 0, 1)
	if err != nil {
		return nil, err
	}
	depthAttrs := relay.Conv2DAttrs{
		Channels:   inChannels * depthMult,
		Groups:     inChannels,
		KernelSize: [2]int{kernelH, kernelW},
		Strides:    attrs.Strides,
		Dilation:   [2]int{1, 1},
	}

	// The depthwise stage pads with the raw (undilated) kernel extent.
	data := in
	data, depthAttrs.Padding, err = applySamePadding(data, layer, attrs.Padding,
		[2]int{kernelH, kernelW}, attrs.Strides)
	if err != nil {
		return nil, err
	}
	depthconv := relay.Conv2D(data, depthWeight, depthAttrs)

	pointWeight, err := transposedConst(etab, pointKernel, 3, 2, 0, 1)
	if err != nil {
		return nil, err
	}
	out := relay.Expr(relay.Conv2D(depthconv, pointWeight, relay.Conv2DAttrs{
		Channels:   pointKernel.Shape()[3],
		KernelSize: [2]int{1, 1},
		Strides:    [2]int{1, 1},
		Dilation:   [2]int{1, 1},
	}))

	if attrs.UseBias {
		bias, err := weight(layer, 2)
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
	return out, nil
}

// applySamePadding resolves the "valid"/"same" padding policy for a
// windowed op. Symmetric padding is returned for the op to consume
// directly; asymmetric padding is materialized as an explicit pad
// operation in front (the convolution only accepts symmetric padding),
// in which case the padding attribute stays zero.
func applySamePadding(in relay.Expr, layer *keras.Layer, mode string, kernel, strides [2]int) (relay.Expr, [2]int, error) {
	switch mode {
	case "valid":
		return in, [2]int{0, 0}, nil
	case "same":
		inH, inW, err := spatialInputSize(layer)
		if err != nil {
			return nil, [2]int{}, err
		}
		padT, padB := PadPair(inH, kernel[0], strides[0])
		padL, padR := PadPair(inW, kernel[1], strides[1])
		if padT == padB && padL == padR {
			return in, [2]int{padT, padL}, nil
		}
		padded := relay.Pad(in, [][2]int{{0, 0}, {0, 0}, {padT, padB}, {padL, padR}})
		return padded, [2]int{0, 0}, nil
	default:
		return nil, [2]int{}, fmt.Errorf("%w: padding type %q", ErrUnsupportedVariant, mode)
	}
}

// spatialInputSize reads the declared channels-last spatial extents of
// the layer input.
func spatialInputSize(layer *keras.Layer) (h, w int, err error) {
	if len(layer.InputShape) != 4 {
		return 0, 0, fmt.Errorf("%w: layer %q needs a rank-4 input shape, got %v",
			ErrShapeConstraint, layer.Name, layer.InputShape)
	}
	h, w = layer.InputShape[1], layer.InputShape[2]
	if h <= 0 || w <= 0 {
		return 0, 0, fmt.Errorf("%w: layer %q needs concrete spatial extents to pad, got %v",
			ErrShapeConstraint, layer.Name, layer.InputShape)
	}
	return h, w, nil
}
