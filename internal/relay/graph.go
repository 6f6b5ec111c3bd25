package relay

// Calls returns every Call node reachable from expr, each once, in
// depth-first dependency order (arguments before their consumers).
func Calls(expr Expr) []*Call {
	var calls []*Call
	visited := make(map[Expr]bool)

	var visit func(e Expr)
	visit = func(e Expr) {
		if e == nil || visited[e] {
			return
		}
		visited[e] = true
		switch n := e.(type) {
		case *Call:
			for _, arg := range n.Args {
				visit(arg)
			}
			calls = append(calls, n)
		case *Tuple:
			for _, f := range n.Fields {
				visit(f)
			}
		case *TupleGetItem:
			visit(n.Tuple)
		case *Var, *Constant, *Scalar:
		}
	}

	visit(expr)
	return calls
}

// CountOps returns how many distinct Call nodes reachable from expr
// apply the given operator.
func CountOps(expr Expr, op string) int {
	n := 0
	for _, c := range Calls(expr) {
		if c.Op == op {
			n++
		}
	}
	return n
}
