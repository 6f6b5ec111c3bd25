// Package frontend converts a Keras layer graph into a relay function
// plus the extracted float32 parameter map. The conversion is a pure,
// single-threaded, all-or-nothing pass over the model's call-sites.
package frontend

import (
	"fmt"

	"github.com/lumen-ml/lumen/internal/relay"
	"github.com/lumen-ml/lumen/internal/tensor"
)

// ExprTable threads data dependencies through the traversal. It maps
// produced tensor names to relay expressions and owns the registry of
// extracted constant parameters. One table lives exactly as long as
// one conversion.
type ExprTable struct {
	exprs      map[string]relay.Expr
	params     map[string]*tensor.Array
	constCount int
}

// NewExprTable creates an empty expression table.
func NewExprTable() *ExprTable {
	return &ExprTable{
		exprs:  make(map[string]relay.Expr),
		params: make(map[string]*tensor.Array),
	}
}

// NewConst registers a weight array under a fresh generated name and
// returns the constant expression referencing it.
func (t *ExprTable) NewConst(arr *tensor.Array) *relay.Constant {
	t.constCount++
	name := fmt.Sprintf("_param_%d", t.constCount)
	t.params[name] = arr
	return &relay.Constant{Name: name, Shape: arr.Shape()}
}

// SetExpr records the expression produced for name. Every name is
// written at most once; a second write indicates a malformed model
// graph or a traversal bug.
func (t *ExprTable) SetExpr(name string, expr relay.Expr) error {
	if _, ok := t.exprs[name]; ok {
		return fmt.Errorf("%w: %q written twice", ErrDuplicateSymbol, name)
	}
	t.exprs[name] = expr
	return nil
}

// GetExpr resolves a previously recorded name.
func (t *ExprTable) GetExpr(name string) (relay.Expr, error) {
	expr, ok := t.exprs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
	}
	return expr, nil
}

// Params returns the accumulated constant registry.
func (t *ExprTable) Params() map[string]*tensor.Array {
	return t.params
}
