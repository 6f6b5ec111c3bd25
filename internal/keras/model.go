package keras

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lumen-ml/lumen/internal/tensor"
)

// Layer is one node definition of the source model: a kind tag, a
// name unique per instance (not per call-site), the ordered learned
// weight arrays, the declared channels-last input/output shapes, and
// the kind-specific attributes. Immutable during conversion.
//
// Shape dimensions use 0 for unspecified (the batch axis in Keras
// prints as None).
type Layer struct {
	Kind         Kind
	Name         string
	Weights      []*tensor.Array
	InputShape   []int
	OutputShape  []int
	DataFormat   string // "" or "channels_last"; anything else is rejected
	Attrs        Attrs
	InboundNodes []InboundNode
}

// InboundNode records one historical invocation (call-site) of a layer
// within the model graph. A layer reused at several graph positions
// has several inbound nodes, each producing logically distinct output
// values.
type InboundNode struct {
	Inbound []Edge
}

// Edge identifies the producer of one layer input: the upstream layer
// by name, which of its call-sites, and which of that call-site's
// output slots.
type Edge struct {
	Layer       string
	NodeIndex   int
	TensorIndex int
}

// OutputCoordinate names one requested model output: a producing
// layer, call-site index, and output-slot index.
type OutputCoordinate struct {
	Layer       string
	NodeIndex   int
	TensorIndex int
}

// Model is an ordered collection of layer descriptors plus the
// call-site bookkeeping of the source graph. Layer order is assumed to
// respect data dependencies, as it does in a serialized Keras model.
type Model struct {
	Name   string
	Layers []*Layer

	// NetworkNodes is the set of call-site keys (see NodeKey) that are
	// part of the network reachable from the outputs. A nil map means
	// every call-site is relevant.
	NetworkNodes map[string]bool

	Outputs []OutputCoordinate

	byName map[string]*Layer
}

// NewModel builds a model from ordered layers and output coordinates.
func NewModel(name string, layers []*Layer, outputs []OutputCoordinate) (*Model, error) {
	m := &Model{
		Name:    name,
		Layers:  layers,
		Outputs: outputs,
		byName:  make(map[string]*Layer, len(layers)),
	}
	for _, l := range layers {
		if _, ok := m.byName[l.Name]; ok {
			return nil, fmt.Errorf("duplicate layer name %q", l.Name)
		}
		m.byName[l.Name] = l
	}
	return m, nil
}

// Clone returns a copy of the model whose layer descriptors and shape
// slices are independent of the receiver, so shape overrides and
// inference on the copy never write back to the original. Weight
// arrays, attribute records, and inbound nodes are shared; conversion
// reads them but never writes. The network-node set is not carried
// over and must be recomputed on the copy.
func (m *Model) Clone() *Model {
	out := &Model{
		Name:    m.Name,
		Layers:  make([]*Layer, len(m.Layers)),
		Outputs: m.Outputs,
		byName:  make(map[string]*Layer, len(m.Layers)),
	}
	for i, l := range m.Layers {
		c := *l
		c.InputShape = append([]int(nil), l.InputShape...)
		c.OutputShape = append([]int(nil), l.OutputShape...)
		out.Layers[i] = &c
		out.byName[c.Name] = &c
	}
	return out
}

// LayerByName returns the layer descriptor with the given name.
func (m *Model) LayerByName(name string) (*Layer, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// NodeKey is the canonical key of one call-site, matching the
// "<layer>_ib-<index>" convention Keras uses for network nodes.
func NodeKey(layerName string, nodeIndex int) string {
	return fmt.Sprintf("%s_ib-%d", layerName, nodeIndex)
}

// NodeRelevant reports whether the call-site takes part in the network
// reachable from the model outputs. Irrelevant call-sites are skipped
// by the conversion traversal.
func (m *Model) NodeRelevant(layer *Layer, nodeIndex int) bool {
	if m.NetworkNodes == nil {
		return true
	}
	return m.NetworkNodes[NodeKey(layer.Name, nodeIndex)]
}

// ComputeNetworkNodes walks the inbound edges backwards from the model
// outputs and records the set of call-sites that belong to the network.
// Call-sites left out of the set (disconnected or unused branches of a
// shared layer) are skipped during conversion.
func (m *Model) ComputeNetworkNodes() {
	nodes := make(map[string]bool)

	var visit func(layerName string, nodeIndex int)
	visit = func(layerName string, nodeIndex int) {
		key := NodeKey(layerName, nodeIndex)
		if nodes[key] {
			return
		}
		nodes[key] = true
		layer, ok := m.byName[layerName]
		if !ok || nodeIndex >= len(layer.InboundNodes) {
			return
		}
		for _, e := range layer.InboundNodes[nodeIndex].Inbound {
			visit(e.Layer, e.NodeIndex)
		}
	}

	for _, oc := range m.Outputs {
		visit(oc.Layer, oc.NodeIndex)
	}
	m.NetworkNodes = nodes
}

// AttachWeights distributes named weight arrays to their layers. Keys
// follow the "<layer>/<index>" convention used by the weight files
// this tool reads and writes; indexes order the arrays within a layer
// (kernel before bias, and so on).
func (m *Model) AttachWeights(weights map[string]*tensor.Array) error {
	perLayer := make(map[string][]indexedArray)
	for key, arr := range weights {
		slash := strings.LastIndex(key, "/")
		if slash < 0 {
			return fmt.Errorf("weight key %q: want \"<layer>/<index>\"", key)
		}
		name := key[:slash]
		idx, err := strconv.Atoi(key[slash+1:])
		if err != nil {
			return fmt.Errorf("weight key %q: %w", key, err)
		}
		if _, ok := m.byName[name]; !ok {
			return fmt.Errorf("weight key %q: no layer named %q", key, name)
		}
		perLayer[name] = append(perLayer[name], indexedArray{idx, arr})
	}

	for name, arrays := range perLayer {
		sort.Slice(arrays, func(i, j int) bool { return arrays[i].idx < arrays[j].idx })
		layer := m.byName[name]
		layer.Weights = make([]*tensor.Array, len(arrays))
		for i, a := range arrays {
			layer.Weights[i] = a.arr
		}
	}
	return nil
}

type indexedArray struct {
	idx int
	arr *tensor.Array
}

// FillShape replaces unspecified (0) dimensions with 1, the
// substitution applied wherever a concrete extent is required.
func FillShape(shape []int) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		if d == 0 {
			out[i] = 1
		} else {
			out[i] = d
		}
	}
	return out
}
