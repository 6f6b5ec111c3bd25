package relay

import (
	"math"
	"testing"

	"github.com/lumen-ml/lumen/internal/tensor"
)

func evalAt(t *testing.T, e Expr, x float32) float32 {
	t.Helper()
	v, err := EvalScalar(e, map[string]float32{"x": x}, nil)
	if err != nil {
		t.Fatalf("EvalScalar failed: %v", err)
	}
	return v
}

func TestEvalScalarArithmetic(t *testing.T) {
	x := NewVar("x", nil)

	if got := evalAt(t, Add(x, Const(2)), 3); got != 5 {
		t.Errorf("add = %v, want 5", got)
	}
	if got := evalAt(t, Divide(x, Const(4)), 2); got != 0.5 {
		t.Errorf("divide = %v, want 0.5", got)
	}
	if got := evalAt(t, Maximum(x, Const(0)), -3); got != 0 {
		t.Errorf("maximum = %v, want 0", got)
	}
	if got := evalAt(t, Greater(x, Const(1)), 2); got != 1 {
		t.Errorf("greater = %v, want 1", got)
	}
}

func TestEvalScalarUnary(t *testing.T) {
	x := NewVar("x", nil)

	if got := evalAt(t, Sigmoid(x), 0); got != 0.5 {
		t.Errorf("sigmoid(0) = %v, want 0.5", got)
	}
	if got := evalAt(t, Tanh(x), 0); got != 0 {
		t.Errorf("tanh(0) = %v, want 0", got)
	}
	if got := evalAt(t, ReLU(x), -2); got != 0 {
		t.Errorf("relu(-2) = %v, want 0", got)
	}
	if got := evalAt(t, LeakyReLU(x, 0.1), -2); math.Abs(float64(got)+0.2) > 1e-6 {
		t.Errorf("leaky_relu(-2) = %v, want -0.2", got)
	}
	if got := evalAt(t, Clip(x, 0, 6), 10); got != 6 {
		t.Errorf("clip(10) = %v, want 6", got)
	}
}

func TestEvalScalarConstant(t *testing.T) {
	c := &Constant{Name: "_param_1", Shape: []int{1}}
	params := map[string]*tensor.Array{
		"_param_1": tensor.Zeros(tensor.Shape{1}),
	}
	params["_param_1"].Data()[0] = 7

	got, err := EvalScalar(Add(c, c), nil, params)
	if err != nil {
		t.Fatalf("EvalScalar failed: %v", err)
	}
	if got != 14 {
		t.Errorf("add of constant = %v, want 14", got)
	}
}

func TestEvalScalarErrors(t *testing.T) {
	x := NewVar("x", nil)
	if _, err := EvalScalar(x, nil, nil); err == nil {
		t.Error("unbound variable did not error")
	}
	if _, err := EvalScalar(BatchFlatten(x), map[string]float32{"x": 1}, nil); err == nil {
		t.Error("structural op did not error")
	}
}
