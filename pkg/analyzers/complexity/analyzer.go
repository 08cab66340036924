// Package complexity measures per-function cyclomatic and cognitive
// complexity. The refactoring evaluator uses it to compare a type's methods
// before and after a local extraction.
package complexity

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Result describes one measured function.
type Result struct {
	Function             string `json:"function"`
	Receiver             string `json:"receiver,omitempty"`
	File                 string `json:"file"`
	Line                 int    `json:"line"`
	CyclomaticComplexity int    `json:"cyclomatic_complexity"`
	CognitiveComplexity  int    `json:"cognitive_complexity"`
	LinesOfCode          int    `json:"lines_of_code"`
	MaxNestingDepth      int    `json:"max_nesting_depth"`
	Level                string `json:"level"`
}

// Key names the function as Receiver.Function, or Function for plain functions.
func (r *Result) Key() string {
	if r.Receiver == "" {
		return r.Function
	}
	return r.Receiver + "." + r.Function
}

// Metrics holds raw complexity numbers.
type Metrics struct {
	CyclomaticComplexity int
	CognitiveComplexity  int
	LinesOfCode          int
	MaxNestingDepth      int
}

type config struct {
	minComplexity int
	receiver      string
}

// Option configures the analyzer.
type Option func(*config)

// WithMinComplexity sets the minimum cyclomatic complexity a function needs
// to be reported. Zero reports every function.
func WithMinComplexity(n int) Option {
	return func(c *config) { c.minComplexity = n }
}

// WithReceiver restricts the analysis to methods of the named type.
func WithReceiver(typeName string) Option {
	return func(c *config) { c.receiver = typeName }
}

var Analyzer = NewAnalyzer()

// NewAnalyzer creates a configured complexity analyzer.
func NewAnalyzer(opts ...Option) *analysis.Analyzer {
	cfg := config{minComplexity: 10}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &analysis.Analyzer{
		Name:     "complexity",
		Doc:      "measures cyclomatic and cognitive complexity of functions",
		Run:      makeRun(cfg),
		Requires: []*analysis.Analyzer{inspect.Analyzer},
	}
}

func makeRun(cfg config) func(*analysis.Pass) (any, error) {
	return func(pass *analysis.Pass) (any, error) {
		insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
		var results []*Result

		for cur := range insp.Root().Preorder((*ast.FuncDecl)(nil)) {
			fn := cur.Node().(*ast.FuncDecl)
			if fn.Body == nil {
				continue
			}
			recv := receiverName(fn)
			if cfg.receiver != "" && recv != cfg.receiver {
				continue
			}

			m := Measure(pass.Fset, fn)
			if m.CyclomaticComplexity < cfg.minComplexity {
				continue
			}

			pos := pass.Fset.Position(fn.Pos())
			r := &Result{
				Function:             fn.Name.Name,
				Receiver:             recv,
				File:                 pos.Filename,
				Line:                 pos.Line,
				CyclomaticComplexity: m.CyclomaticComplexity,
				CognitiveComplexity:  m.CognitiveComplexity,
				LinesOfCode:          m.LinesOfCode,
				MaxNestingDepth:      m.MaxNestingDepth,
				Level:                ClassifyComplexity(m.CyclomaticComplexity),
			}
			if cfg.minComplexity > 0 {
				pass.Report(analysis.Diagnostic{
					Pos:     fn.Pos(),
					End:     fn.End(),
					Message: fmt.Sprintf("function %s has cyclomatic complexity %d (%s)", r.Key(), r.CyclomaticComplexity, r.Level),
				})
			}
			results = append(results, r)
		}

		sort.SliceStable(results, func(i, j int) bool {
			return results[i].CyclomaticComplexity > results[j].CyclomaticComplexity
		})
		return results, nil
	}
}

// Measure computes the metrics of a single function.
func Measure(fset *token.FileSet, fn *ast.FuncDecl) *Metrics {
	m := &Metrics{CyclomaticComplexity: 1}
	if fn.Body == nil {
		return m
	}
	m.LinesOfCode = fset.Position(fn.Body.Rbrace).Line - fset.Position(fn.Body.Lbrace).Line + 1
	walk(fn.Body, m, 0)
	return m
}

func walk(node ast.Node, m *Metrics, depth int) {
	switch stmt := node.(type) {
	case nil:
		return

	case *ast.IfStmt:
		m.branch(depth)
		if stmt.Init != nil {
			walk(stmt.Init, m, depth+1)
		}
		walk(stmt.Cond, m, depth)
		walk(stmt.Body, m, depth+1)
		switch els := stmt.Else.(type) {
		case nil:
		case *ast.IfStmt:
			walk(els, m, depth)
		default:
			m.CyclomaticComplexity++
			walk(els, m, depth+1)
		}

	case *ast.ForStmt:
		m.branch(depth)
		if stmt.Cond != nil {
			walk(stmt.Cond, m, depth)
		}
		walk(stmt.Body, m, depth+1)

	case *ast.RangeStmt:
		m.branch(depth)
		walk(stmt.Body, m, depth+1)

	case *ast.SwitchStmt:
		m.clauses(stmt.Body, depth)
	case *ast.TypeSwitchStmt:
		m.clauses(stmt.Body, depth)
	case *ast.SelectStmt:
		m.clauses(stmt.Body, depth)

	case *ast.BinaryExpr:
		if stmt.Op == token.LAND || stmt.Op == token.LOR {
			m.CyclomaticComplexity++
		}
		walk(stmt.X, m, depth)
		walk(stmt.Y, m, depth)

	case *ast.FuncLit, *ast.GoStmt, *ast.DeferStmt:
		m.CognitiveComplexity += cognitiveWeight(depth)

	case *ast.BlockStmt:
		if depth > m.MaxNestingDepth {
			m.MaxNestingDepth = depth
		}
		for _, child := range stmt.List {
			walk(child, m, depth)
		}

	case *ast.ExprStmt:
		walk(stmt.X, m, depth)
	case *ast.AssignStmt:
		for _, rhs := range stmt.Rhs {
			walk(rhs, m, depth)
		}
	case *ast.ReturnStmt:
		for _, r := range stmt.Results {
			walk(r, m, depth)
		}
	case *ast.ParenExpr:
		walk(stmt.X, m, depth)
	case *ast.LabeledStmt:
		walk(stmt.Stmt, m, depth)
	}
}

func (m *Metrics) branch(depth int) {
	m.CyclomaticComplexity++
	m.CognitiveComplexity += cognitiveWeight(depth)
}

// clauses adds one path per non-default case (plus the implicit fall-out
// when there is no default) and walks every clause body one level deeper.
func (m *Metrics) clauses(body *ast.BlockStmt, depth int) {
	if body == nil {
		return
	}
	m.CognitiveComplexity += cognitiveWeight(depth)

	hasDefault := false
	for _, s := range body.List {
		var list []ast.Stmt
		switch cc := s.(type) {
		case *ast.CaseClause:
			if cc.List == nil {
				hasDefault = true
			} else {
				m.CyclomaticComplexity++
			}
			list = cc.Body
		case *ast.CommClause:
			m.CyclomaticComplexity++
			list = cc.Body
		}
		for _, child := range list {
			walk(child, m, depth+1)
		}
	}
	if !hasDefault {
		if _, isSelect := firstClause(body).(*ast.CommClause); !isSelect {
			m.CyclomaticComplexity++
		}
	}
}

func firstClause(body *ast.BlockStmt) ast.Stmt {
	if len(body.List) == 0 {
		return nil
	}
	return body.List[0]
}

func cognitiveWeight(nestingLevel int) int {
	return 1 + nestingLevel
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

// ClassifyComplexity classifies a cyclomatic complexity value into a level string.
func ClassifyComplexity(complexity int) string {
	switch {
	case complexity >= 20:
		return "extreme"
	case complexity >= 15:
		return "very_high"
	case complexity >= 10:
		return "high"
	case complexity >= 5:
		return "moderate"
	default:
		return "low"
	}
}
