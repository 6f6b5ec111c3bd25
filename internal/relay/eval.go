package relay

import (
	"fmt"
	"math"

	"github.com/lumen-ml/lumen/internal/tensor"
)

// EvalScalar evaluates the element-wise arithmetic subset of the IR on
// scalar inputs. Variables resolve through env by name and constants
// through params (which must hold single-element arrays). Structural
// operators (convolution, pooling, reshape, ...) are not evaluable and
// return an error.
//
// This is a verification aid: it lets tests check that a lowered
// activation sequence reproduces the reference math.
func EvalScalar(e Expr, env map[string]float32, params map[string]*tensor.Array) (float32, error) {
	switch n := e.(type) {
	case *Scalar:
		return n.Value, nil
	case *Var:
		v, ok := env[n.Name]
		if !ok {
			return 0, fmt.Errorf("eval: unbound variable %q", n.Name)
		}
		return v, nil
	case *Constant:
		arr, ok := params[n.Name]
		if !ok {
			return 0, fmt.Errorf("eval: unknown constant %q", n.Name)
		}
		if len(arr.Data()) != 1 {
			return 0, fmt.Errorf("eval: constant %q is not scalar (shape %v)", n.Name, arr.Shape())
		}
		return arr.Data()[0], nil
	case *TupleGetItem:
		return 0, fmt.Errorf("eval: tuple projection is not scalar-evaluable")
	case *Tuple:
		return 0, fmt.Errorf("eval: tuple is not scalar-evaluable")
	case *Call:
		return evalCall(n, env, params)
	default:
		return 0, fmt.Errorf("eval: unsupported expression %T", e)
	}
}

func evalCall(c *Call, env map[string]float32, params map[string]*tensor.Array) (float32, error) {
	args := make([]float32, len(c.Args))
	for i, arg := range c.Args {
		v, err := EvalScalar(arg, env, params)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	f64 := func(v float32) float64 { return float64(v) }

	switch c.Op {
	case "add":
		return args[0] + args[1], nil
	case "subtract":
		return args[0] - args[1], nil
	case "multiply":
		return args[0] * args[1], nil
	case "divide":
		return args[0] / args[1], nil
	case "maximum":
		return float32(math.Max(f64(args[0]), f64(args[1]))), nil
	case "greater":
		if args[0] > args[1] {
			return 1, nil
		}
		return 0, nil
	case "exp":
		return float32(math.Exp(f64(args[0]))), nil
	case "log":
		return float32(math.Log(f64(args[0]))), nil
	case "abs":
		return float32(math.Abs(f64(args[0]))), nil
	case "negative":
		return -args[0], nil
	case "sigmoid":
		return float32(1 / (1 + math.Exp(-f64(args[0])))), nil
	case "tanh":
		return float32(math.Tanh(f64(args[0]))), nil
	case "cast":
		return args[0], nil
	case "clip":
		lo, _ := c.Attrs["a_min"].(float64)
		hi, _ := c.Attrs["a_max"].(float64)
		return float32(math.Min(math.Max(f64(args[0]), lo), hi)), nil
	case "nn.relu":
		if args[0] > 0 {
			return args[0], nil
		}
		return 0, nil
	case "nn.leaky_relu":
		alpha, _ := c.Attrs["alpha"].(float64)
		if args[0] >= 0 {
			return args[0], nil
		}
		return float32(alpha * f64(args[0])), nil
	default:
		return 0, fmt.Errorf("eval: operator %q is not scalar-evaluable", c.Op)
	}
}
