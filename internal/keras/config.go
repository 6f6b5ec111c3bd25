package keras

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load parses a Keras model.to_json() architecture document into a
// Model. Both the functional ("Model"/"Functional") and "Sequential"
// container formats are supported. Weight arrays are not part of the
// architecture document; attach them with Model.AttachWeights.
func Load(data []byte) (*Model, error) {
	var doc struct {
		ClassName string          `json:"class_name"`
		Config    json.RawMessage `json:"config"`
		Backend   string          `json:"backend"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model json: %w", err)
	}
	if doc.Backend != "" && doc.Backend != "tensorflow" {
		return nil, fmt.Errorf("unsupported backend %q: only tensorflow-backed models are convertible", doc.Backend)
	}

	switch doc.ClassName {
	case "Model", "Functional":
		return loadFunctional(doc.Config)
	case "Sequential":
		return loadSequential(doc.Config)
	default:
		return nil, fmt.Errorf("unsupported model container %q", doc.ClassName)
	}
}

// LoadFile reads and parses a model architecture JSON file.
func LoadFile(path string) (*Model, error) {
	//nolint:gosec // G304: loading a user-specified model file is intentional.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Load(data)
}

type jsonLayer struct {
	ClassName    string          `json:"class_name"`
	Name         string          `json:"name"`
	Config       map[string]any  `json:"config"`
	InboundNodes json.RawMessage `json:"inbound_nodes"`
}

func loadFunctional(raw json.RawMessage) (*Model, error) {
	var cfg struct {
		Name         string      `json:"name"`
		Layers       []jsonLayer `json:"layers"`
		OutputLayers [][]any     `json:"output_layers"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	layers := make([]*Layer, 0, len(cfg.Layers))
	for i := range cfg.Layers {
		layer, err := parseLayer(&cfg.Layers[i])
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}

	outputs := make([]OutputCoordinate, 0, len(cfg.OutputLayers))
	for _, oc := range cfg.OutputLayers {
		coord, err := parseCoordinate(oc)
		if err != nil {
			return nil, fmt.Errorf("invalid output coordinate: %w", err)
		}
		outputs = append(outputs, coord)
	}

	m, err := NewModel(cfg.Name, layers, outputs)
	if err != nil {
		return nil, err
	}
	m.ComputeNetworkNodes()
	if err := m.InferShapes(); err != nil {
		return nil, err
	}
	return m, nil
}

// loadSequential turns the Sequential container into the functional
// form: a synthesized input layer followed by a linear chain of
// call-sites.
func loadSequential(raw json.RawMessage) (*Model, error) {
	var cfg struct {
		Name   string      `json:"name"`
		Layers []jsonLayer `json:"layers"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}
	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("sequential model has no layers")
	}

	layers := make([]*Layer, 0, len(cfg.Layers)+1)
	prev := ""

	if cfg.Layers[0].ClassName != "InputLayer" {
		shape := shapeFromConfig(cfg.Layers[0].Config, "batch_input_shape")
		if shape == nil {
			return nil, fmt.Errorf("sequential model: first layer %q lacks batch_input_shape", layerName(&cfg.Layers[0]))
		}
		name := layerName(&cfg.Layers[0]) + "_input"
		layers = append(layers, &Layer{
			Kind:        KindInput,
			Name:        name,
			InputShape:  shape,
			OutputShape: shape,
		})
		prev = name
	}

	for i := range cfg.Layers {
		layer, err := parseLayer(&cfg.Layers[i])
		if err != nil {
			return nil, err
		}
		if layer.Kind != KindInput {
			layer.InboundNodes = []InboundNode{{Inbound: []Edge{{Layer: prev, NodeIndex: 0, TensorIndex: 0}}}}
		}
		layers = append(layers, layer)
		prev = layer.Name
	}

	outputs := []OutputCoordinate{{Layer: prev, NodeIndex: 0, TensorIndex: 0}}
	m, err := NewModel(cfg.Name, layers, outputs)
	if err != nil {
		return nil, err
	}
	if err := m.InferShapes(); err != nil {
		return nil, err
	}
	return m, nil
}

func layerName(jl *jsonLayer) string {
	if name := cfgString(jl.Config, "name", ""); name != "" {
		return name
	}
	return jl.Name
}

func parseLayer(jl *jsonLayer) (*Layer, error) {
	kind, ok := KindFromClassName(jl.ClassName)
	if !ok {
		return nil, fmt.Errorf("keras layer %s not supported", jl.ClassName)
	}

	layer := &Layer{
		Kind:       kind,
		Name:       layerName(jl),
		DataFormat: cfgString(jl.Config, "data_format", ""),
	}

	if shape := shapeFromConfig(jl.Config, "batch_input_shape"); shape != nil {
		layer.InputShape = shape
		if kind == KindInput {
			layer.OutputShape = shape
		}
	}

	attrs, err := parseAttrs(kind, jl.Config)
	if err != nil {
		return nil, fmt.Errorf("layer %q (%s): %w", layer.Name, jl.ClassName, err)
	}
	layer.Attrs = attrs

	nodes, err := parseInboundNodes(jl.InboundNodes)
	if err != nil {
		return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
	}
	layer.InboundNodes = nodes

	return layer, nil
}

//nolint:gocyclo // one case per layer kind; splitting would obscure the dispatch.
func parseAttrs(kind Kind, cfg map[string]any) (Attrs, error) {
	switch kind {
	case KindDense:
		return &DenseAttrs{
			Units:      cfgInt(cfg, "units", 0),
			UseBias:    cfgBool(cfg, "use_bias", true),
			Activation: cfgString(cfg, "activation", "linear"),
		}, nil

	case KindActivation:
		return &ActivationAttrs{
			Activation: cfgString(cfg, "activation", "linear"),
			Alpha:      cfgOptFloat(cfg, "alpha"),
			Beta:       cfgOptFloat(cfg, "beta"),
		}, nil

	case KindReLU:
		return &ReLUAttrs{MaxValue: cfgOptFloat(cfg, "max_value")}, nil
	case KindLeakyReLU:
		return &LeakyReLUAttrs{Alpha: cfgFloat(cfg, "alpha", 0.3)}, nil
	case KindELU:
		return &ELUAttrs{Alpha: cfgFloat(cfg, "alpha", 1.0)}, nil
	case KindPReLU:
		return &PReLUAttrs{}, nil
	case KindThresholdedReLU:
		return &ThresholdedReLUAttrs{Theta: cfgFloat(cfg, "theta", 1.0)}, nil

	case KindConv2D, KindConv2DTranspose, KindDepthwiseConv2D, KindSeparableConv2D:
		attrs := &ConvAttrs{
			Filters:         cfgInt(cfg, "filters", 0),
			KernelSize:      cfgIntPair(cfg, "kernel_size", [2]int{1, 1}),
			Strides:         cfgIntPair(cfg, "strides", [2]int{1, 1}),
			Padding:         cfgString(cfg, "padding", "valid"),
			DilationRate:    cfgIntPair(cfg, "dilation_rate", [2]int{1, 1}),
			DepthMultiplier: cfgInt(cfg, "depth_multiplier", 1),
			UseBias:         cfgBool(cfg, "use_bias", true),
			Activation:      cfgString(cfg, "activation", "linear"),
		}
		return attrs, nil

	case KindMaxPooling2D, KindAveragePooling2D:
		pool := cfgIntPair(cfg, "pool_size", [2]int{2, 2})
		return &PoolAttrs{
			PoolSize: pool,
			Strides:  cfgIntPair(cfg, "strides", pool),
			Padding:  cfgString(cfg, "padding", "valid"),
		}, nil

	case KindBatchNormalization:
		return &BatchNormAttrs{
			Epsilon: cfgFloat(cfg, "epsilon", 1e-3),
			Center:  cfgBool(cfg, "center", true),
			Scale:   cfgBool(cfg, "scale", true),
		}, nil

	case KindReshape:
		return &ReshapeAttrs{TargetShape: cfgIntList(cfg, "target_shape")}, nil

	case KindZeroPadding2D:
		t, b, l, r, err := padding2DFromConfig(cfg["padding"], 1)
		if err != nil {
			return nil, err
		}
		return &ZeroPadding2DAttrs{Top: t, Bottom: b, Left: l, Right: r}, nil

	case KindCropping2D:
		t, b, l, r, err := padding2DFromConfig(cfg["cropping"], 0)
		if err != nil {
			return nil, err
		}
		return &Cropping2DAttrs{Top: t, Bottom: b, Left: l, Right: r}, nil

	case KindUpSampling1D, KindUpSampling2D, KindUpSampling3D:
		return &UpSamplingAttrs{Size: sizeFromConfig(cfg["size"], kind)}, nil

	case KindSimpleRNN, KindLSTM, KindGRU:
		if cfgBool(cfg, "return_sequences", false) {
			return nil, fmt.Errorf("return_sequences=true is not supported")
		}
		attrs := &RecurrentAttrs{
			Units:               cfgInt(cfg, "units", 0),
			Activation:          cfgString(cfg, "activation", "tanh"),
			RecurrentActivation: cfgString(cfg, "recurrent_activation", "hard_sigmoid"),
			UseBias:             cfgBool(cfg, "use_bias", true),
		}
		return attrs, nil

	default:
		// Input, Flatten, Concatenate, merges, dropout variants and the
		// unimplemented 1D kinds carry no attributes.
		return nil, nil
	}
}

// padding2DFromConfig normalizes the three accepted 2D padding (or
// cropping) specifications: a scalar, a symmetric (height, width)
// pair, or per-side ((top, bottom), (left, right)) tuples. A missing
// value takes def on every side; Keras defaults padding to 1 and
// cropping to 0.
func padding2DFromConfig(v any, def int) (top, bottom, left, right int, err error) {
	switch p := v.(type) {
	case nil:
		return def, def, def, def, nil
	case float64:
		n := int(p)
		return n, n, n, n, nil
	case []any:
		if len(p) != 2 {
			return 0, 0, 0, 0, fmt.Errorf("unrecognized padding option: %v", v)
		}
		switch first := p[0].(type) {
		case float64:
			h, hErr := asInt(p[0])
			w, wErr := asInt(p[1])
			if hErr != nil || wErr != nil {
				return 0, 0, 0, 0, fmt.Errorf("unrecognized padding option: %v", v)
			}
			return h, h, w, w, nil
		case []any:
			tb, lr := first, p[1]
			lrList, ok := lr.([]any)
			if !ok || len(tb) != 2 || len(lrList) != 2 {
				return 0, 0, 0, 0, fmt.Errorf("unrecognized padding option: %v", v)
			}
			var errs [4]error
			top, errs[0] = asInt(tb[0])
			bottom, errs[1] = asInt(tb[1])
			left, errs[2] = asInt(lrList[0])
			right, errs[3] = asInt(lrList[1])
			for _, e := range errs {
				if e != nil {
					return 0, 0, 0, 0, fmt.Errorf("unrecognized padding option: %v", v)
				}
			}
			return top, bottom, left, right, nil
		}
	}
	return 0, 0, 0, 0, fmt.Errorf("unrecognized padding option: %v", v)
}

func sizeFromConfig(v any, kind Kind) []int {
	switch s := v.(type) {
	case float64:
		return []int{int(s)}
	case []any:
		out := make([]int, 0, len(s))
		for _, e := range s {
			if n, err := asInt(e); err == nil {
				out = append(out, n)
			}
		}
		return out
	}
	// Keras defaults: 2 along every spatial axis.
	switch kind {
	case KindUpSampling1D:
		return []int{2}
	case KindUpSampling3D:
		return []int{2, 2, 2}
	default:
		return []int{2, 2}
	}
}

// parseInboundNodes decodes the nested Keras inbound_nodes structure:
// one entry per call-site, each a list of [layer, node_index,
// tensor_index, kwargs] edges.
func parseInboundNodes(raw json.RawMessage) ([]InboundNode, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var nodes [][][]any
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse inbound_nodes: %w", err)
	}
	out := make([]InboundNode, 0, len(nodes))
	for _, node := range nodes {
		edges := make([]Edge, 0, len(node))
		for _, e := range node {
			if len(e) < 3 {
				return nil, fmt.Errorf("malformed inbound edge: %v", e)
			}
			name, ok := e[0].(string)
			if !ok {
				return nil, fmt.Errorf("malformed inbound edge: %v", e)
			}
			nodeIdx, err := asInt(e[1])
			if err != nil {
				return nil, fmt.Errorf("malformed inbound edge: %v", e)
			}
			tensorIdx, err := asInt(e[2])
			if err != nil {
				return nil, fmt.Errorf("malformed inbound edge: %v", e)
			}
			edges = append(edges, Edge{Layer: name, NodeIndex: nodeIdx, TensorIndex: tensorIdx})
		}
		out = append(out, InboundNode{Inbound: edges})
	}
	return out, nil
}

func parseCoordinate(oc []any) (OutputCoordinate, error) {
	if len(oc) < 3 {
		return OutputCoordinate{}, fmt.Errorf("malformed coordinate: %v", oc)
	}
	name, ok := oc[0].(string)
	if !ok {
		return OutputCoordinate{}, fmt.Errorf("malformed coordinate: %v", oc)
	}
	nodeIdx, err := asInt(oc[1])
	if err != nil {
		return OutputCoordinate{}, err
	}
	tensorIdx, err := asInt(oc[2])
	if err != nil {
		return OutputCoordinate{}, err
	}
	return OutputCoordinate{Layer: name, NodeIndex: nodeIdx, TensorIndex: tensorIdx}, nil
}

// Config value helpers. JSON numbers decode as float64.

func asInt(v any) (int, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return int(f), nil
}

func cfgString(cfg map[string]any, key, def string) string {
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return def
}

func cfgBool(cfg map[string]any, key string, def bool) bool {
	if b, ok := cfg[key].(bool); ok {
		return b
	}
	return def
}

func cfgInt(cfg map[string]any, key string, def int) int {
	if f, ok := cfg[key].(float64); ok {
		return int(f)
	}
	return def
}

func cfgFloat(cfg map[string]any, key string, def float64) float64 {
	if f, ok := cfg[key].(float64); ok {
		return f
	}
	return def
}

func cfgOptFloat(cfg map[string]any, key string) *float64 {
	if f, ok := cfg[key].(float64); ok {
		return &f
	}
	return nil
}

func cfgIntPair(cfg map[string]any, key string, def [2]int) [2]int {
	switch v := cfg[key].(type) {
	case float64:
		n := int(v)
		return [2]int{n, n}
	case []any:
		if len(v) == 2 {
			a, aErr := asInt(v[0])
			b, bErr := asInt(v[1])
			if aErr == nil && bErr == nil {
				return [2]int{a, b}
			}
		}
	}
	return def
}

func cfgIntList(cfg map[string]any, key string) []int {
	list, ok := cfg[key].([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, e := range list {
		if n, err := asInt(e); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// shapeFromConfig reads a shape list, mapping JSON null dimensions
// (the batch axis) to 0.
func shapeFromConfig(cfg map[string]any, key string) []int {
	list, ok := cfg[key].([]any)
	if !ok {
		return nil
	}
	shape := make([]int, len(list))
	for i, e := range list {
		if e == nil {
			shape[i] = 0
			continue
		}
		n, err := asInt(e)
		if err != nil {
			return nil
		}
		shape[i] = n
	}
	return shape
}
