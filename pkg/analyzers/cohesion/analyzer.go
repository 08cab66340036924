// Package cohesion computes the LCOM2 and LCOM3 lack-of-cohesion metrics for
// every struct type of a package. Lower values mean more cohesive types.
//
// For a type with m methods and a fields, where MA is the number of distinct
// own fields a method reads or writes through its receiver:
//
//	LCOM2 = 1 - sum(MA) / (m*a)
//	LCOM3 = (m - sum(MA)/a) / (m-1)
//
// Both are zero when the type has no fields, and LCOM3 is zero for fewer
// than two methods.
package cohesion

import (
	"fmt"
	"go/ast"
	"sort"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Result holds the cohesion readings of one type.
type Result struct {
	Type    string  `json:"type"`
	File    string  `json:"file"`
	Line    int     `json:"line"`
	Methods int     `json:"methods"`
	Fields  int     `json:"fields"`
	SumMA   int     `json:"sum_ma"`
	LCOM2   float64 `json:"lcom2"`
	LCOM3   float64 `json:"lcom3"`
}

type config struct {
	maxLCOM3 float64
	typeName string
}

// Option configures the analyzer.
type Option func(*config)

// WithMaxLCOM3 reports a diagnostic for every type whose LCOM3 exceeds max.
func WithMaxLCOM3(max float64) Option {
	return func(c *config) { c.maxLCOM3 = max }
}

// WithType restricts the analysis to a single type.
func WithType(name string) Option {
	return func(c *config) { c.typeName = name }
}

var Analyzer = NewAnalyzer()

// NewAnalyzer creates a configured cohesion analyzer.
func NewAnalyzer(opts ...Option) *analysis.Analyzer {
	cfg := config{maxLCOM3: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &analysis.Analyzer{
		Name:     "cohesion",
		Doc:      "computes LCOM2 and LCOM3 lack-of-cohesion metrics per struct type",
		Run:      makeRun(cfg),
		Requires: []*analysis.Analyzer{inspect.Analyzer},
	}
}

type typeInfo struct {
	spec    *ast.TypeSpec
	fields  map[string]bool
	methods []*ast.FuncDecl
}

func makeRun(cfg config) func(*analysis.Pass) (any, error) {
	return func(pass *analysis.Pass) (any, error) {
		insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
		byName := make(map[string]*typeInfo)

		for cur := range insp.Root().Preorder((*ast.TypeSpec)(nil)) {
			ts := cur.Node().(*ast.TypeSpec)
			st, ok := ts.Type.(*ast.StructType)
			if !ok || (cfg.typeName != "" && ts.Name.Name != cfg.typeName) {
				continue
			}
			byName[ts.Name.Name] = &typeInfo{spec: ts, fields: fieldNames(st)}
		}

		for cur := range insp.Root().Preorder((*ast.FuncDecl)(nil)) {
			fn := cur.Node().(*ast.FuncDecl)
			if fn.Body == nil {
				continue
			}
			if ti, ok := byName[receiverType(fn)]; ok {
				ti.methods = append(ti.methods, fn)
			}
		}

		results := make([]*Result, 0, len(byName))
		for name, ti := range byName {
			pos := pass.Fset.Position(ti.spec.Pos())
			r := measure(ti)
			r.Type = name
			r.File = pos.Filename
			r.Line = pos.Line
			if r.LCOM3 > cfg.maxLCOM3 {
				pass.Report(analysis.Diagnostic{
					Pos:     ti.spec.Pos(),
					End:     ti.spec.End(),
					Message: fmt.Sprintf("type %s has LCOM3 %.2f", name, r.LCOM3),
				})
			}
			results = append(results, r)
		}

		sort.Slice(results, func(i, j int) bool { return results[i].Type < results[j].Type })
		return results, nil
	}
}

func measure(ti *typeInfo) *Result {
	r := &Result{Methods: len(ti.methods), Fields: len(ti.fields)}
	for _, fn := range ti.methods {
		r.SumMA += len(accessedFields(fn, ti.fields))
	}

	m := float64(r.Methods)
	a := float64(r.Fields)
	sum := float64(r.SumMA)
	if m > 0 && a > 0 {
		r.LCOM2 = 1 - sum/(m*a)
	}
	if m > 1 && a > 0 {
		r.LCOM3 = (m - sum/a) / (m - 1)
	}
	return r
}

// accessedFields returns the own fields fn touches through its receiver.
func accessedFields(fn *ast.FuncDecl, fields map[string]bool) map[string]bool {
	seen := make(map[string]bool)
	recv := receiverIdent(fn)
	if recv == "" {
		return seen
	}
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if x, ok := sel.X.(*ast.Ident); ok && x.Name == recv && fields[sel.Sel.Name] {
			seen[sel.Sel.Name] = true
		}
		return true
	})
	return seen
}

func fieldNames(st *ast.StructType) map[string]bool {
	names := make(map[string]bool)
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			if name := embeddedName(f.Type); name != "" {
				names[name] = true
			}
			continue
		}
		for _, n := range f.Names {
			if n.Name != "_" {
				names[n.Name] = true
			}
		}
	}
	return names
}

func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

func receiverIdent(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 || len(fn.Recv.List[0].Names) == 0 {
		return ""
	}
	name := fn.Recv.List[0].Names[0].Name
	if name == "_" {
		return ""
	}
	return name
}

func receiverType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

// Lookup returns the reading for typeName from an analyzer result.
func Lookup(results []*Result, typeName string) (*Result, bool) {
	for _, r := range results {
		if r.Type == typeName {
			return r, true
		}
	}
	return nil, false
}
