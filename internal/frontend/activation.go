package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/keras"
	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

// SELU constants from Klambauer et al., "Self-Normalizing Neural
// Networks" (https://arxiv.org/abs/1706.02515).
const (
	seluAlpha = 1.6732632423543772848170429916717
	seluGamma = 1.0507009873554804934193349852946
)

// lowerActivation expands a named activation into primitive ops.
//
// attrs carries the learned scale/offset of a standalone "linear"
// Activation layer; it is nil when the activation is fused into a
// preceding layer or applied to a recurrent gate, in which case
// "linear" is the identity.
func lowerActivation(in relay.Expr, actType string, attrs *keras.ActivationAttrs) (relay.Expr, error) {
	switch actType {
	case "linear":
		if attrs == nil {
			return in, nil
		}
		alpha, beta := float32(1), float32(0)
		if attrs.Alpha != nil {
			alpha = float32(*attrs.Alpha)
		}
		if attrs.Beta != nil {
			beta = float32(*attrs.Beta)
		}
		return relay.Add(relay.Multiply(in, relay.Const(alpha)), relay.Const(beta)), nil
	case "softmax":
		// Data is channel-first at this point; normalize over channels.
		return relay.Softmax(in, 1), nil
	case "sigmoid":
		return relay.Sigmoid(in), nil
	case "tanh":
		return relay.Tanh(in), nil
	case "relu":
		return relay.ReLU(in), nil
	case "softplus":
		return relay.Log(relay.Add(relay.Exp(in), relay.Const(1))), nil
	case "elu":
		alpha := float32(1)
		if attrs != nil && attrs.Alpha != nil {
			alpha = float32(*attrs.Alpha)
		}
		return elu(in, alpha), nil
	case "selu":
		return relay.Multiply(relay.Const(seluGamma), elu(in, seluAlpha)), nil
	case "relu6":
		return relay.Clip(in, 0, 6), nil
	case "softsign":
		return relay.Divide(in, relay.Add(relay.Const(1), relay.Abs(in))), nil
	case "hard_sigmoid":
		transformed := relay.Add(relay.Multiply(relay.Const(0.2), in), relay.Const(0.5))
		return relay.Clip(transformed, 0, 1), nil
	default:
		return nil, fmt.Errorf("%w: activation type %q", ErrUnsupportedVariant, actType)
	}
}

// elu builds -alpha*relu(1-exp(x)) + relu(x).
func elu(in relay.Expr, alpha float32) relay.Expr {
	neg := relay.Multiply(
		relay.Negative(relay.Const(alpha)),
		relay.ReLU(relay.Subtract(relay.Const(1), relay.Exp(in))),
	)
	return relay.Add(neg, relay.ReLU(in))
}

// lowerAdvancedActivation expands the parameterized activation layers,
// which carry their own learned coefficients and therefore dispatch on
// the layer kind rather than an identifier string.
func lowerAdvancedActivation(in relay.Expr, layer *keras.Layer, etab *ExprTable) (relay.Expr, error) {
	switch attrs := layer.Attrs.(type) {
	case *keras.ReLUAttrs:
		if attrs.MaxValue != nil && *attrs.MaxValue != 0 {
			return relay.Clip(in, 0, *attrs.MaxValue), nil
		}
		return relay.ReLU(in), nil

	case *keras.LeakyReLUAttrs:
		return relay.LeakyReLU(in, attrs.Alpha), nil

	case *keras.ELUAttrs:
		return elu(in, float32(attrs.Alpha)), nil

	case *keras.PReLUAttrs:
		if len(layer.Weights) == 0 {
			return nil, fmt.Errorf("%w: alpha weights required for PReLU", ErrMissingAttribute)
		}
		// The learned alpha is channels-last; rotate the trailing axis
		// to the front to match the channel-first data layout.
		alphaArr, err := layer.Weights[0].Transpose(tensor.RollAxes(layer.Weights[0].Rank()))
		if err != nil {
			return nil, fmt.Errorf("prelu alpha: %w", err)
		}
		alpha := etab.NewConst(alphaArr)
		neg := relay.Multiply(relay.Negative(alpha), relay.ReLU(relay.Negative(in)))
		return relay.Add(neg, relay.ReLU(in)), nil

	case *keras.ThresholdedReLUAttrs:
		mask := relay.Cast(relay.Greater(in, relay.Const(float32(attrs.Theta))), "float32")
		return relay.Multiply(in, mask), nil

	default:
		return nil, fmt.Errorf("%w: advanced activation %s", ErrUnsupportedVariant, layer.Kind)
	}
}
