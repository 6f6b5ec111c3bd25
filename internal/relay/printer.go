package relay

import (
	"fmt"
	"sort"
	"strings"
)

// printer assigns SSA-style numbers to call and tuple nodes and emits
// one line per node in dependency order. Shared subexpressions are
// printed once and referenced by number afterwards.
type printer struct {
	sb    strings.Builder
	names map[Expr]string
	next  int
}

// PrintFunction renders a function as readable text, e.g.
//
//	fn (%input_1: Tensor[(1, 3, 8, 8)]) {
//	  %0 = nn.conv2d(%input_1, @_param_1, channels=4, ...)
//	  %0
//	}
func PrintFunction(fn *Function) string {
	p := &printer{names: make(map[Expr]string)}

	params := make([]string, len(fn.Params))
	for i, v := range fn.Params {
		params[i] = p.varDecl(v)
	}
	p.sb.WriteString("fn (" + strings.Join(params, ", ") + ") {\n")
	result := p.visit(fn.Body)
	fmt.Fprintf(&p.sb, "  %s\n}\n", result)
	return p.sb.String()
}

// Print renders a bare expression without a function wrapper.
func Print(expr Expr) string {
	p := &printer{names: make(map[Expr]string)}
	result := p.visit(expr)
	if p.sb.Len() == 0 {
		return result
	}
	return p.sb.String() + result
}

func (p *printer) varDecl(v *Var) string {
	if v.Shape == nil {
		return "%" + v.Name
	}
	dims := make([]string, len(v.Shape))
	for i, d := range v.Shape {
		if d == 0 {
			dims[i] = "?"
		} else {
			dims[i] = fmt.Sprintf("%d", d)
		}
	}
	return fmt.Sprintf("%%%s: Tensor[(%s)]", v.Name, strings.Join(dims, ", "))
}

func (p *printer) visit(e Expr) string {
	if name, ok := p.names[e]; ok {
		return name
	}
	var name string
	switch n := e.(type) {
	case *Var:
		name = "%" + n.Name
	case *Constant:
		name = "@" + n.Name
	case *Scalar:
		name = fmt.Sprintf("%gf", n.Value)
	case *Call:
		args := make([]string, len(n.Args))
		for i, arg := range n.Args {
			args[i] = p.visit(arg)
		}
		name = p.fresh()
		fmt.Fprintf(&p.sb, "  %s = %s(%s%s)\n", name, n.Op, strings.Join(args, ", "), formatAttrs(n.Attrs))
	case *Tuple:
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = p.visit(f)
		}
		name = p.fresh()
		fmt.Fprintf(&p.sb, "  %s = (%s)\n", name, strings.Join(fields, ", "))
	case *TupleGetItem:
		tuple := p.visit(n.Tuple)
		name = p.fresh()
		fmt.Fprintf(&p.sb, "  %s = %s.%d\n", name, tuple, n.Index)
	}
	p.names[e] = name
	return name
}

func (p *printer) fresh() string {
	name := fmt.Sprintf("%%%d", p.next)
	p.next++
	return name
}

func formatAttrs(attrs Attrs) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return ", " + strings.Join(parts, ", ")
}
