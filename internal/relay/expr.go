// Package relay defines the typed tensor-operation IR that model
// conversion targets: a small expression graph of variables, named
// constants, operator calls and tuples, assembled into functions.
package relay

import "github.com/lumen-ml/lumen/internal/tensor"

// Expr is one node of the IR expression graph. Expressions form a DAG:
// a node may be referenced by several consumers, and identity (pointer
// equality) distinguishes shared subexpressions.
type Expr interface {
	isExpr()
}

// Var is a free input variable of the graph, e.g. a model input.
// Shape is nil when the caller left the input shape unspecified.
type Var struct {
	Name  string
	Shape tensor.Shape
}

// Constant references a named parameter tensor held in the constant
// registry produced alongside the graph.
type Constant struct {
	Name  string
	Shape tensor.Shape
}

// Scalar is an inline float32 literal.
type Scalar struct {
	Value float32
}

// Attrs carries the operator attributes of a Call. Values are ints,
// floats, bools, strings, or slices thereof.
type Attrs map[string]any

// Call applies a primitive operator to argument expressions.
type Call struct {
	Op    string
	Args  []Expr
	Attrs Attrs
}

// Tuple groups several expressions into one value.
type Tuple struct {
	Fields []Expr
}

// TupleGetItem projects one field out of a tuple-valued expression,
// e.g. one slice produced by split or the output of batch_norm.
type TupleGetItem struct {
	Tuple Expr
	Index int
}

// Function is a callable graph: a body expression closed over an
// ordered list of free input variables.
type Function struct {
	Params []*Var
	Body   Expr
}

func (*Var) isExpr()          {}
func (*Constant) isExpr()     {}
func (*Scalar) isExpr()       {}
func (*Call) isExpr()         {}
func (*Tuple) isExpr()        {}
func (*TupleGetItem) isExpr() {}
