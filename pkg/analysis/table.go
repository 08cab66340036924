package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	gotypes "go/types"
	"sort"

	"github.com/mamaar/extractor/pkg/types"
)

// BuildLineSymbols walks the given nodes (a method, or every method of a
// type) once and records, per source line, the symbols the line touches.
func BuildLineSymbols(fset *token.FileSet, nodes ...ast.Node) (*types.LineSymbols, error) {
	b := &tableBuilder{
		fset:  fset,
		table: make(map[int]types.SymbolSet),
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		pos := fset.Position(n.Pos())
		if !pos.IsValid() || pos.Line <= 0 {
			return nil, &types.RefactorError{
				Type:    types.LineResolutionFailure,
				Message: fmt.Sprintf("cannot resolve line numbers for %T", n),
			}
		}
		ast.Inspect(n, b.visit)
	}
	if b.err != nil {
		return nil, b.err
	}
	b.inheritElseLines()
	return types.NewLineSymbols(b.table), nil
}

type elseLink struct {
	elseLine int
	ifLine   int
}

type tableBuilder struct {
	fset  *token.FileSet
	table map[int]types.SymbolSet
	elses []elseLink
	err   error
}

func (b *tableBuilder) line(n ast.Node) int {
	pos := b.fset.Position(n.Pos())
	if !pos.IsValid() && b.err == nil {
		b.err = &types.RefactorError{
			Type:    types.LineResolutionFailure,
			Message: fmt.Sprintf("cannot resolve line number for %T", n),
		}
	}
	return pos.Line
}

func (b *tableBuilder) add(line int, names ...string) {
	if line <= 0 {
		return
	}
	set, ok := b.table[line]
	if !ok {
		set = make(types.SymbolSet)
		b.table[line] = set
	}
	for _, name := range names {
		if name != "" && name != "_" {
			set.Add(name)
		}
	}
}

// visit is the single dispatch point over node kinds. Returning false means
// the case already walked the children it cares about.
func (b *tableBuilder) visit(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.CallExpr:
		b.call(n)
		return false

	case *ast.AssignStmt:
		line := b.line(n)
		for _, lhs := range n.Lhs {
			if id, ok := operandIdent(lhs); ok {
				b.add(line, id.Name)
			}
		}
		for _, rhs := range n.Rhs {
			if id, ok := operandIdent(rhs); ok {
				b.add(line, id.Name)
			}
		}

	case *ast.IncDecStmt:
		if id, ok := operandIdent(n.X); ok {
			b.add(b.line(n), id.Name)
		}

	case *ast.ValueSpec:
		for _, name := range n.Names {
			b.add(b.line(name), name.Name)
		}
		for _, v := range n.Values {
			if id, ok := operandIdent(v); ok {
				b.add(b.line(n), id.Name)
			}
		}

	case *ast.SelectorExpr:
		b.selector(n)
		return false

	case *ast.IndexExpr:
		b.index(n, n.X, n.Index)

	case *ast.IndexListExpr:
		b.index(n, n.X, nil)

	case *ast.BinaryExpr:
		line := b.line(n)
		for _, operand := range []ast.Expr{n.X, n.Y} {
			if id, ok := operandIdent(operand); ok {
				b.add(line, id.Name)
			}
		}

	case *ast.TypeAssertExpr:
		if id, ok := operandIdent(n.X); ok {
			b.add(b.line(n), id.Name)
		}

	case *ast.IfStmt:
		if id, ok := operandIdent(n.Cond); ok {
			b.add(b.line(n), id.Name)
		}
		if n.Else != nil {
			b.elses = append(b.elses, elseLink{elseLine: b.line(n.Else), ifLine: b.line(n)})
		}

	case *ast.ForStmt:
		line := b.line(n)
		if init, ok := n.Init.(*ast.AssignStmt); ok && init.Tok == token.DEFINE {
			for _, lhs := range init.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					b.add(line, id.Name)
				}
			}
		}
		if id, ok := operandIdent(n.Cond); ok {
			b.add(line, id.Name)
		}

	case *ast.RangeStmt:
		line := b.line(n)
		for _, e := range []ast.Expr{n.Key, n.Value, n.X} {
			if id, ok := operandIdent(e); ok {
				b.add(line, id.Name)
			}
		}

	case *ast.ReturnStmt:
		line := b.line(n)
		for _, r := range n.Results {
			if id, ok := operandIdent(r); ok {
				b.add(line, id.Name)
			}
		}
	}
	return true
}

// call records the callee, simple-name arguments and, for calls on a named
// receiver, the receiver and receiver.method.
func (b *tableBuilder) call(n *ast.CallExpr) {
	line := b.line(n)

	switch fun := ast.Unparen(n.Fun).(type) {
	case *ast.Ident:
		b.add(line, fun.Name)
	case *ast.SelectorExpr:
		b.add(line, fun.Sel.Name)
		if recv, ok := fun.X.(*ast.Ident); ok {
			b.add(line, recv.Name, recv.Name+"."+fun.Sel.Name)
		} else {
			ast.Inspect(fun.X, b.visit)
		}
	default:
		ast.Inspect(n.Fun, b.visit)
	}

	for _, arg := range n.Args {
		if id, ok := arg.(*ast.Ident); ok {
			b.add(line, id.Name)
			continue
		}
		ast.Inspect(arg, b.visit)
	}
}

// selector handles both qualified names (an identifier chain a.b.c, which
// contributes every prefix and every segment) and field accesses on an
// arbitrary expression (x[i].f contributes f, x and x.f).
func (b *tableBuilder) selector(n *ast.SelectorExpr) {
	line := b.line(n)

	if segments, ok := identChain(n); ok {
		prefix := ""
		for _, seg := range segments {
			if prefix == "" {
				prefix = seg
			} else {
				prefix += "." + seg
			}
			b.add(line, seg, prefix)
		}
		return
	}

	recv := ast.Unparen(n.X)
	if idx, ok := recv.(*ast.IndexExpr); ok {
		recv = idx.X
	}
	recvText := gotypes.ExprString(recv)
	b.add(line, n.Sel.Name, recvText, recvText+"."+n.Sel.Name)
	ast.Inspect(n.X, b.visit)
}

// index records the indexed expression (unless it is itself an index
// expression) and a simple-name index.
func (b *tableBuilder) index(n ast.Node, x, index ast.Expr) {
	line := b.line(n)
	switch ast.Unparen(x).(type) {
	case *ast.IndexExpr, *ast.IndexListExpr:
	default:
		b.add(line, gotypes.ExprString(x))
	}
	if id, ok := index.(*ast.Ident); ok {
		b.add(line, id.Name)
	}
}

// inheritElseLines makes else / else-if lines depend on whatever their
// governing if line depends on. Links are applied in line order so chained
// else-if branches inherit transitively.
func (b *tableBuilder) inheritElseLines() {
	sort.Slice(b.elses, func(i, j int) bool { return b.elses[i].elseLine < b.elses[j].elseLine })
	for _, link := range b.elses {
		src := b.table[link.ifLine]
		if len(src) == 0 {
			continue
		}
		b.add(link.elseLine, src.Sorted()...)
	}
}

// identChain returns the segments of a pure identifier selector chain.
func identChain(e ast.Expr) ([]string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		return []string{e.Name}, true
	case *ast.SelectorExpr:
		head, ok := identChain(e.X)
		if !ok {
			return nil, false
		}
		return append(head, e.Sel.Name), true
	default:
		return nil, false
	}
}

// operandIdent unwraps parentheses, unary operators and dereferences around
// a simple name.
func operandIdent(e ast.Expr) (*ast.Ident, bool) {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			if x.Name == "nil" || x.Name == "true" || x.Name == "false" {
				return nil, false
			}
			return x, true
		case *ast.ParenExpr:
			e = x.X
		case *ast.UnaryExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		default:
			return nil, false
		}
	}
}
