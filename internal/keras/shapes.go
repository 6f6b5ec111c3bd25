package keras

import "fmt"

// InferShapes propagates channels-last shapes from the input layers
// through the graph, filling each layer's declared InputShape and
// OutputShape. Shapes stay nil past a layer whose input shape is
// unknown; lowering rules that need a concrete extent report the
// failure there.
//
// For a layer reused at several call-sites, the first call-site's
// shapes become the declared ones, matching the single declared
// input/output shape of the layer descriptor.
func (m *Model) InferShapes() error {
	for _, layer := range m.Layers {
		if layer.Kind == KindInput {
			if layer.OutputShape == nil {
				layer.OutputShape = layer.InputShape
			}
			continue
		}
		if len(layer.InboundNodes) == 0 {
			continue
		}

		first := layer.InboundNodes[0].Inbound
		if len(first) == 0 {
			continue
		}
		inShapes := make([][]int, len(first))
		for i, e := range first {
			producer, ok := m.byName[e.Layer]
			if !ok {
				return fmt.Errorf("layer %q: unknown inbound layer %q", layer.Name, e.Layer)
			}
			inShapes[i] = producer.OutputShape
		}

		if layer.InputShape == nil {
			layer.InputShape = inShapes[0]
		}
		if layer.OutputShape == nil && inShapes[0] != nil {
			out, err := outputShape(layer, inShapes)
			if err != nil {
				return fmt.Errorf("layer %q: %w", layer.Name, err)
			}
			layer.OutputShape = out
		}
	}
	return nil
}

//nolint:gocyclo // one case per layer kind; splitting would obscure the dispatch.
func outputShape(layer *Layer, inShapes [][]int) ([]int, error) {
	in := inShapes[0]

	switch layer.Kind {
	case KindDense:
		attrs := layer.Attrs.(*DenseAttrs)
		out := clone(in)
		out[len(out)-1] = attrs.Units
		return out, nil

	case KindActivation, KindReLU, KindLeakyReLU, KindPReLU, KindELU, KindThresholdedReLU,
		KindBatchNormalization, KindDropout, KindSpatialDropout1D, KindSpatialDropout2D,
		KindAdd, KindSubtract, KindMultiply, KindAverage, KindMaximum:
		return clone(in), nil

	case KindConv2D, KindConv2DTranspose, KindDepthwiseConv2D, KindSeparableConv2D:
		return convOutputShape(layer, in)

	case KindMaxPooling2D, KindAveragePooling2D:
		attrs := layer.Attrs.(*PoolAttrs)
		if len(in) != 4 {
			return nil, fmt.Errorf("pooling expects rank-4 input, got %v", in)
		}
		out := clone(in)
		out[1] = windowedSize(in[1], attrs.PoolSize[0], attrs.Strides[0], attrs.Padding)
		out[2] = windowedSize(in[2], attrs.PoolSize[1], attrs.Strides[1], attrs.Padding)
		return out, nil

	case KindGlobalMaxPooling2D, KindGlobalAveragePooling2D:
		if len(in) != 4 {
			return nil, fmt.Errorf("global pooling expects rank-4 input, got %v", in)
		}
		return []int{in[0], in[3]}, nil

	case KindFlatten:
		n := 1
		for _, d := range in[1:] {
			if d == 0 {
				n = 0
				break
			}
			n *= d
		}
		return []int{in[0], n}, nil

	case KindReshape:
		attrs := layer.Attrs.(*ReshapeAttrs)
		return append([]int{in[0]}, attrs.TargetShape...), nil

	case KindConcatenate:
		out := clone(in)
		last := len(out) - 1
		for _, s := range inShapes[1:] {
			if s == nil || len(s) != len(in) {
				return nil, fmt.Errorf("concatenate inputs disagree on rank")
			}
			out[last] += s[last]
		}
		return out, nil

	case KindZeroPadding2D:
		attrs := layer.Attrs.(*ZeroPadding2DAttrs)
		if len(in) != 4 {
			return nil, fmt.Errorf("zero padding expects rank-4 input, got %v", in)
		}
		out := clone(in)
		out[1] = grow(in[1], attrs.Top+attrs.Bottom)
		out[2] = grow(in[2], attrs.Left+attrs.Right)
		return out, nil

	case KindCropping2D:
		attrs := layer.Attrs.(*Cropping2DAttrs)
		if len(in) != 4 {
			return nil, fmt.Errorf("cropping expects rank-4 input, got %v", in)
		}
		out := clone(in)
		out[1] = grow(in[1], -(attrs.Top + attrs.Bottom))
		out[2] = grow(in[2], -(attrs.Left + attrs.Right))
		return out, nil

	case KindUpSampling2D:
		attrs := layer.Attrs.(*UpSamplingAttrs)
		if len(in) != 4 || len(attrs.Size) != 2 {
			return nil, fmt.Errorf("2d upsampling expects rank-4 input, got %v", in)
		}
		out := clone(in)
		out[1] = scale(in[1], attrs.Size[0])
		out[2] = scale(in[2], attrs.Size[1])
		return out, nil

	case KindSimpleRNN, KindLSTM, KindGRU:
		attrs := layer.Attrs.(*RecurrentAttrs)
		return []int{in[0], attrs.Units}, nil

	case KindZeroPadding1D, KindCropping1D, KindUpSampling1D, KindUpSampling3D:
		// Lowering of these variants is unimplemented; shapes are not
		// needed to report that failure.
		return nil, nil

	default:
		return clone(in), nil
	}
}

func convOutputShape(layer *Layer, in []int) ([]int, error) {
	attrs := layer.Attrs.(*ConvAttrs)
	if len(in) != 4 {
		return nil, fmt.Errorf("convolution expects rank-4 input, got %v", in)
	}

	channels := attrs.Filters
	if layer.Kind == KindDepthwiseConv2D {
		channels = in[3] * attrs.DepthMultiplier
	}

	out := []int{in[0], 0, 0, channels}
	for i := 0; i < 2; i++ {
		size := in[1+i]
		if size == 0 {
			continue
		}
		k := attrs.KernelSize[i]
		s := attrs.Strides[i]
		if layer.Kind == KindConv2DTranspose {
			if attrs.Padding == "same" {
				out[1+i] = size * s
			} else {
				out[1+i] = (size-1)*s + k
			}
			continue
		}
		dilated := (k-1)*attrs.DilationRate[i] + 1
		out[1+i] = windowedSize(size, dilated, s, attrs.Padding)
	}
	return out, nil
}

// windowedSize is the output extent of a strided window sweep under
// the Keras "same"/"valid" policies. Unknown (0) stays unknown.
func windowedSize(size, kernel, stride int, padding string) int {
	if size == 0 {
		return 0
	}
	if padding == "same" {
		return (size + stride - 1) / stride
	}
	return (size-kernel)/stride + 1
}

func grow(size, delta int) int {
	if size == 0 {
		return 0
	}
	return size + delta
}

func scale(size, factor int) int {
	if size == 0 {
		return 0
	}
	return size * factor
}

func clone(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}
