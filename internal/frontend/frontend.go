package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

// FromModel converts a layer graph into a relay function plus the
// extracted parameter map. shapeDict overrides the declared shape of
// input layers by name; entries for other layers are ignored.
//
// The conversion is all-or-nothing: the model is validated up front and
// any later failure aborts without partial results. The source model
// is never modified, so repeated conversions of the same model are
// independent.
func FromModel(m *keras.Model, shapeDict map[string][]int) (*relay.Function, map[string]*tensor.Array, error) {
	if err := checkModel(m); err != nil {
		return nil, nil, err
	}

	// Shape overrides and inference below write into the layer
	// descriptors; work on a copy so the caller's model stays intact
	// and reconverting it is deterministic.
	m = m.Clone()

	if len(shapeDict) > 0 {
		// Overridden input extents invalidate everything inferred
		// downstream; clear and re-propagate.
		for _, layer := range m.Layers {
			if layer.Kind == keras.KindInput {
				if shape, ok := shapeDict[layer.Name]; ok {
					layer.InputShape = shape
					layer.OutputShape = shape
				}
				continue
			}
			layer.InputShape = nil
			layer.OutputShape = nil
		}
	}

	m.ComputeNetworkNodes()
	if err := m.InferShapes(); err != nil {
		return nil, nil, err
	}

	etab := NewExprTable()
	for _, layer := range m.Layers {
		if layer.Kind == keras.KindInput {
			v := relay.NewVar(layer.Name, layer.OutputShape)
			if err := etab.SetExpr(layer.Name, v); err != nil {
				return nil, nil, err
			}
			continue
		}

		for nodeIdx, node := range layer.InboundNodes {
			if !m.NodeRelevant(layer, nodeIdx) {
				continue
			}

			inputs := make([]relay.Expr, len(node.Inbound))
			for i, e := range node.Inbound {
				name, err := symbolName(m, e.Layer, e.NodeIndex, e.TensorIndex)
				if err != nil {
					return nil, nil, err
				}
				if inputs[i], err = etab.GetExpr(name); err != nil {
					return nil, nil, err
				}
			}

			outs, err := lowerLayer(inputs, layer, etab)
			if err != nil {
				return nil, nil, fmt.Errorf("layer %q: %w", layer.Name, err)
			}
			for tIdx, out := range outs {
				key := fmt.Sprintf("%s:%d:%d", layer.Name, nodeIdx, tIdx)
				if err := etab.SetExpr(key, out); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	body, err := assembleOutputs(m, etab)
	if err != nil {
		return nil, nil, err
	}
	return relay.NewFunction(body), etab.Params(), nil
}

// checkModel validates every layer descriptor before any conversion
// work happens, so a failing model never yields a half-built table.
func checkModel(m *keras.Model) error {
	for _, layer := range m.Layers {
		if !layer.Kind.Valid() {
			return fmt.Errorf("%w: layer %q", ErrUnsupportedLayer, layer.Name)
		}
		switch layer.DataFormat {
		case "", "channels_last":
		default:
			return fmt.Errorf("%w: layer %q uses data format %q, only channels_last is supported",
				ErrUnsupportedVariant, layer.Name, layer.DataFormat)
		}
	}
	return nil
}

// symbolName is the table key for one produced tensor. Input layers
// produce exactly one value and go by their bare name; every other
// value is keyed by layer, call-site, and output slot, so a shared
// layer's distinct invocations never collide.
func symbolName(m *keras.Model, layerName string, nodeIndex, tensorIndex int) (string, error) {
	producer, ok := m.LayerByName(layerName)
	if !ok {
		return "", fmt.Errorf("%w: no layer named %q", ErrUnknownSymbol, layerName)
	}
	if producer.Kind == keras.KindInput {
		return layerName, nil
	}
	return fmt.Sprintf("%s:%d:%d", layerName, nodeIndex, tensorIndex), nil
}

// assembleOutputs resolves the declared output coordinates and wraps
// multiple outputs in a tuple.
func assembleOutputs(m *keras.Model, etab *ExprTable) (relay.Expr, error) {
	outs := make([]relay.Expr, len(m.Outputs))
	for i, oc := range m.Outputs {
		name, err := symbolName(m, oc.Layer, oc.NodeIndex, oc.TensorIndex)
		if err != nil {
			return nil, err
		}
		if outs[i], err = etab.GetExpr(name); err != nil {
			return nil, err
		}
	}

	switch len(outs) {
	case 0:
		return nil, fmt.Errorf("%w: model declares no outputs", ErrShapeConstraint)
	case 1:
		return outs[0], nil
	default:
		return &relay.Tuple{Fields: outs}, nil
	}
}
