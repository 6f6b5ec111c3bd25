package relay

// FreeVars returns the free input variables of expr in first-visit
// depth-first order. Shared subexpressions are visited once, so the
// result is deterministic for a given graph.
func FreeVars(expr Expr) []*Var {
	var vars []*Var
	visited := make(map[Expr]bool)

	var visit func(e Expr)
	visit = func(e Expr) {
		if e == nil || visited[e] {
			return
		}
		visited[e] = true
		switch n := e.(type) {
		case *Var:
			vars = append(vars, n)
		case *Call:
			for _, arg := range n.Args {
				visit(arg)
			}
		case *Tuple:
			for _, f := range n.Fields {
				visit(f)
			}
		case *TupleGetItem:
			visit(n.Tuple)
		case *Constant, *Scalar:
			// no free variables
		}
	}

	visit(expr)
	return vars
}

// Constants returns the named constants referenced by expr, each once,
// in first-visit depth-first order.
func Constants(expr Expr) []*Constant {
	var consts []*Constant
	visited := make(map[Expr]bool)

	var visit func(e Expr)
	visit = func(e Expr) {
		if e == nil || visited[e] {
			return
		}
		visited[e] = true
		switch n := e.(type) {
		case *Constant:
			consts = append(consts, n)
		case *Call:
			for _, arg := range n.Args {
				visit(arg)
			}
		case *Tuple:
			for _, f := range n.Fields {
				visit(f)
			}
		case *TupleGetItem:
			visit(n.Tuple)
		case *Var, *Scalar:
		}
	}

	visit(expr)
	return consts
}

// NewFunction builds a Function closing over exactly the free
// variables of body.
func NewFunction(body Expr) *Function {
	return &Function{Params: FreeVars(body), Body: body}
}
