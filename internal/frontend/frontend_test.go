package frontend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

func loadModel(t *testing.T, data string) *keras.Model {
	t.Helper()
	m, err := keras.Load([]byte(data))
	require.NoError(t, err)
	return m
}

func setWeights(t *testing.T, m *keras.Model, layerName string, shapes ...tensor.Shape) {
	t.Helper()
	layer, ok := m.LayerByName(layerName)
	require.True(t, ok, "layer %s not found", layerName)
	layer.Weights = make([]*tensor.Array, len(shapes))
	for i, s := range shapes {
		layer.Weights[i] = tensor.Zeros(s)
	}
}

func TestFromModelConvSamePadding(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "conv_net",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, 8, 8, 3]},
	       "inbound_nodes": []},
	      {"class_name": "Conv2D", "name": "conv",
	       "config": {"name": "conv", "filters": 4, "kernel_size": [3, 3], "strides": [1, 1],
	                  "padding": "same", "use_bias": false, "activation": "linear"},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]}
	    ],
	    "output_layers": [["conv", 0, 0]]
	  }
	}`)
	setWeights(t, m, "conv", tensor.Shape{3, 3, 3, 4})

	fn, params, err := FromModel(m, map[string][]int{"input_1": {1, 8, 8, 3}})
	require.NoError(t, err)

	// Symmetric same-padding is carried on the convolution itself.
	assert.Equal(t, 1, relay.CountOps(fn.Body, "nn.conv2d"))
	assert.Equal(t, 0, relay.CountOps(fn.Body, "nn.pad"))

	require.Len(t, fn.Params, 1)
	assert.Equal(t, "input_1", fn.Params[0].Name)
	require.Len(t, params, 1)

	// 3x3 window over an 8x8 extent at stride 1 pads one cell per side.
	conv := fn.Body.(*relay.Call)
	assert.Equal(t, []int{1, 1}, conv.Attrs["padding"])
	assert.Equal(t, 4, conv.Attrs["channels"])

	// The kernel was transposed to (out, in, kh, kw).
	kernel := params["_param_1"]
	require.NotNil(t, kernel)
	assert.True(t, kernel.Shape().Equal(tensor.Shape{4, 3, 3, 3}))
}

func TestFromModelConvAsymmetricPadding(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "strided",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, 8, 8, 3]},
	       "inbound_nodes": []},
	      {"class_name": "Conv2D", "name": "conv",
	       "config": {"name": "conv", "filters": 2, "kernel_size": [3, 3], "strides": [2, 2],
	                  "padding": "same", "use_bias": false},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]}
	    ],
	    "output_layers": [["conv", 0, 0]]
	  }
	}`)
	setWeights(t, m, "conv", tensor.Shape{3, 3, 3, 2})

	fn, _, err := FromModel(m, nil)
	require.NoError(t, err)

	// An 8-wide sweep with a 3x3 kernel at stride 2 needs (0, 1)
	// padding: materialized as an explicit pad, zero on the conv.
	require.Equal(t, 1, relay.CountOps(fn.Body, "nn.pad"))
	conv := fn.Body.(*relay.Call)
	assert.Equal(t, []int{0, 0}, conv.Attrs["padding"])
}

func TestFromModelTwoBranches(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "two_branch",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, 4]},
	       "inbound_nodes": []},
	      {"class_name": "Dense", "name": "fc1",
	       "config": {"name": "fc1", "units": 8, "activation": "relu"},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]},
	      {"class_name": "Dense", "name": "fc2",
	       "config": {"name": "fc2", "units": 8},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]},
	      {"class_name": "Add", "name": "add_1",
	       "config": {"name": "add_1"},
	       "inbound_nodes": [[["fc1", 0, 0, {}], ["fc2", 0, 0, {}]]]}
	    ],
	    "output_layers": [["add_1", 0, 0]]
	  }
	}`)
	setWeights(t, m, "fc1", tensor.Shape{4, 8}, tensor.Shape{8})
	setWeights(t, m, "fc2", tensor.Shape{4, 8}, tensor.Shape{8})

	fn, params, err := FromModel(m, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, relay.CountOps(fn.Body, "nn.dense"))
	assert.Equal(t, 2, relay.CountOps(fn.Body, "nn.bias_add"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "nn.relu"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "add"))

	// Both branches read the same input variable.
	require.Len(t, fn.Params, 1)
	assert.Len(t, params, 4)
}

func TestFromModelSequentialChain(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Sequential",
	  "backend": "tensorflow",
	  "config": {
	    "name": "mlp",
	    "layers": [
	      {"class_name": "Flatten",
	       "config": {"name": "flatten_1", "batch_input_shape": [null, 4, 4, 3]}},
	      {"class_name": "Dense",
	       "config": {"name": "dense_1", "units": 10, "activation": "softmax"}}
	    ]
	  }
	}`)
	setWeights(t, m, "dense_1", tensor.Shape{48, 10}, tensor.Shape{10})

	fn, _, err := FromModel(m, nil)
	require.NoError(t, err)

	// Flatten on rank-4 input restores channels-last order first.
	text := relay.PrintFunction(fn)
	assert.Contains(t, text, "transpose")
	assert.Contains(t, text, "nn.batch_flatten")
	assert.Contains(t, text, "nn.softmax")
}

func TestFromModelDropoutPassthrough(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "drop",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, 4]},
	       "inbound_nodes": []},
	      {"class_name": "Dropout", "name": "dropout_1",
	       "config": {"name": "dropout_1", "rate": 0.5},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]}
	    ],
	    "output_layers": [["dropout_1", 0, 0]]
	  }
	}`)

	fn, params, err := FromModel(m, nil)
	require.NoError(t, err)

	// Dropout vanishes: the function body is the input variable itself.
	v, ok := fn.Body.(*relay.Var)
	require.True(t, ok, "body is %T, want *relay.Var", fn.Body)
	assert.Equal(t, "input_1", v.Name)
	assert.Empty(t, params)
}

func TestFromModelMultipleOutputs(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "heads",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, 4]},
	       "inbound_nodes": []},
	      {"class_name": "Dense", "name": "head_a",
	       "config": {"name": "head_a", "units": 2, "use_bias": false},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]},
	      {"class_name": "Dense", "name": "head_b",
	       "config": {"name": "head_b", "units": 3, "use_bias": false},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]}
	    ],
	    "output_layers": [["head_a", 0, 0], ["head_b", 0, 0]]
	  }
	}`)
	setWeights(t, m, "head_a", tensor.Shape{4, 2})
	setWeights(t, m, "head_b", tensor.Shape{4, 3})

	fn, _, err := FromModel(m, nil)
	require.NoError(t, err)

	tup, ok := fn.Body.(*relay.Tuple)
	require.True(t, ok, "body is %T, want *relay.Tuple", fn.Body)
	assert.Len(t, tup.Fields, 2)
}

func TestFromModelValidatesBeforeLowering(t *testing.T) {
	layers := []*keras.Layer{
		{Kind: keras.KindInput, Name: "input_1", InputShape: []int{0, 4}, OutputShape: []int{0, 4}},
		{
			Kind: keras.KindDense, Name: "fc", DataFormat: "channels_first",
			Attrs:        &keras.DenseAttrs{Units: 2, UseBias: false, Activation: "linear"},
			InboundNodes: []keras.InboundNode{{Inbound: []keras.Edge{{Layer: "input_1"}}}},
		},
	}
	m, err := keras.NewModel("bad", layers, []keras.OutputCoordinate{{Layer: "fc"}})
	require.NoError(t, err)

	_, _, err = FromModel(m, nil)
	require.ErrorIs(t, err, ErrUnsupportedVariant)
	assert.Contains(t, err.Error(), "channels_first")
}

func TestFromModelUnknownProducer(t *testing.T) {
	layers := []*keras.Layer{
		{Kind: keras.KindInput, Name: "input_1", InputShape: []int{0, 4}, OutputShape: []int{0, 4}},
		{
			Kind: keras.KindFlatten, Name: "flat",
			InboundNodes: []keras.InboundNode{{Inbound: []keras.Edge{{Layer: "ghost"}}}},
		},
	}
	m, err := keras.NewModel("bad", layers, []keras.OutputCoordinate{{Layer: "flat"}})
	require.NoError(t, err)

	_, _, err = FromModel(m, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestFromModelShapeDictOverride(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Model",
	  "backend": "tensorflow",
	  "config": {
	    "name": "resize",
	    "layers": [
	      {"class_name": "InputLayer", "name": "input_1",
	       "config": {"name": "input_1", "batch_input_shape": [null, null, null, 3]},
	       "inbound_nodes": []},
	      {"class_name": "Conv2D", "name": "conv",
	       "config": {"name": "conv", "filters": 2, "kernel_size": [3, 3],
	                  "padding": "same", "use_bias": false},
	       "inbound_nodes": [[["input_1", 0, 0, {}]]]}
	    ],
	    "output_layers": [["conv", 0, 0]]
	  }
	}`)
	setWeights(t, m, "conv", tensor.Shape{3, 3, 3, 2})

	// Without concrete extents the same-padding cannot be resolved.
	_, _, err := FromModel(m, nil)
	require.ErrorIs(t, err, ErrShapeConstraint)

	// The override supplies them.
	fn, _, err := FromModel(m, map[string][]int{"input_1": {1, 16, 16, 3}})
	require.NoError(t, err)
	text := relay.PrintFunction(fn)
	assert.True(t, strings.Contains(text, "Tensor[(1, 16, 16, 3)]"), "input shape missing:\n%s", text)

	// The override lives in the conversion, not the model: converting
	// again without it must fail the same way as the first attempt.
	_, _, err = FromModel(m, nil)
	require.ErrorIs(t, err, ErrShapeConstraint)

	input, ok := m.LayerByName("input_1")
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 0, 3}, input.OutputShape)
}
