package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

func TestFromModelLSTMUnrolled(t *testing.T) {
	const (
		timeSteps = 3
		features  = 5
		units     = 4
	)
	m := loadModel(t, `{
	  "class_name": "Sequential",
	  "backend": "tensorflow",
	  "config": {
	    "name": "rnn",
	    "layers": [
	      {"class_name": "LSTM",
	       "config": {"name": "lstm_1", "units": 4, "batch_input_shape": [null, 3, 5],
	                  "activation": "tanh", "recurrent_activation": "hard_sigmoid"}}
	    ]
	  }
	}`)
	setWeights(t, m, "lstm_1",
		tensor.Shape{features, 4 * units},
		tensor.Shape{units, 4 * units},
		tensor.Shape{4 * units})

	fn, params, err := FromModel(m, nil)
	require.NoError(t, err)

	// Each time step projects the input and the carried state.
	assert.Equal(t, 2*timeSteps, relay.CountOps(fn.Body, "nn.dense"))
	// One sequence split plus a 4-way gate split per step.
	assert.Equal(t, 1+timeSteps, relay.CountOps(fn.Body, "split"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "squeeze"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "reshape"))

	// Kernel, recurrent kernel, bias plus the two zero initial states.
	assert.Len(t, params, 5)

	// The reported output keeps the declared (batch, units) shape.
	reshape := fn.Body.(*relay.Call)
	require.Equal(t, "reshape", reshape.Op)
	assert.Equal(t, []int{1, units}, reshape.Attrs["newshape"])
}

func TestFromModelSimpleRNN(t *testing.T) {
	m := loadModel(t, `{
	  "class_name": "Sequential",
	  "backend": "tensorflow",
	  "config": {
	    "name": "rnn",
	    "layers": [
	      {"class_name": "SimpleRNN",
	       "config": {"name": "rnn_1", "units": 6, "batch_input_shape": [null, 1, 4],
	                  "activation": "tanh"}}
	    ]
	  }
	}`)
	setWeights(t, m, "rnn_1",
		tensor.Shape{4, 6},
		tensor.Shape{6, 6},
		tensor.Shape{6})

	fn, params, err := FromModel(m, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, relay.CountOps(fn.Body, "nn.dense"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "tanh"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "nn.bias_add"))
	// Kernel, recurrent kernel, bias, zero initial state.
	assert.Len(t, params, 4)
}

func TestFromModelGRUSplitGeometry(t *testing.T) {
	const units = 2
	m := loadModel(t, `{
	  "class_name": "Sequential",
	  "backend": "tensorflow",
	  "config": {
	    "name": "rnn",
	    "layers": [
	      {"class_name": "GRU",
	       "config": {"name": "gru_1", "units": 2, "batch_input_shape": [null, 1, 3],
	                  "activation": "tanh", "recurrent_activation": "hard_sigmoid"}}
	    ]
	  }
	}`)
	setWeights(t, m, "gru_1",
		tensor.Shape{3, 3 * units},
		tensor.Shape{units, 3 * units},
		tensor.Shape{3 * units})

	fn, params, err := FromModel(m, nil)
	require.NoError(t, err)

	// Input projection, update/reset hidden projection, candidate
	// hidden projection.
	assert.Equal(t, 3, relay.CountOps(fn.Body, "nn.dense"))
	// Fused gate split, recurrent kernel row split, recurrent gate split.
	assert.Equal(t, 3, relay.CountOps(fn.Body, "split"))
	assert.Equal(t, 1, relay.CountOps(fn.Body, "tanh"))
	// Kernel, recurrent kernel, bias, zero initial state.
	assert.Len(t, params, 4)

	text := relay.PrintFunction(fn)
	assert.Contains(t, text, "indices=[2 4]")
}

func TestLowerLSTMRejectsBadArity(t *testing.T) {
	layer := &keras.Layer{
		Kind:       keras.KindLSTM,
		Name:       "lstm_1",
		InputShape: []int{0, 3, 5},
		Attrs:      &keras.RecurrentAttrs{Units: 4, Activation: "tanh", RecurrentActivation: "sigmoid", UseBias: true},
	}
	inputs := []relay.Expr{relay.NewVar("a", nil), relay.NewVar("b", nil)}
	_, err := lowerLSTM(inputs, layer, NewExprTable())
	require.ErrorIs(t, err, ErrShapeConstraint)
}
