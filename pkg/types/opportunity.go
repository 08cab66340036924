package types

import (
	"fmt"
	"go/ast"
	"math"
	"strconv"
	"strings"
)

// Opportunity is a strictly increasing run of table lines believed to be
// extractable as one unit. Valid opportunities have more than one line.
type Opportunity []int

func (o Opportunity) Start() int { return o[0] }
func (o Opportunity) End() int   { return o[len(o)-1] }

// Key identifies the opportunity by its exact line list.
func (o Opportunity) Key() string {
	parts := make([]string, len(o))
	for i, l := range o {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ",")
}

func (o Opportunity) String() string { return "[" + o.Key() + "]" }

// Candidate is an opportunity with its synthesized extracted method,
// residual source and cohesion readings.
type Candidate struct {
	Opportunity Opportunity
	StartLine   int
	// EndLine may exceed Opportunity.End() when a trailing statement spans
	// more lines than the opportunity covered.
	EndLine int

	File string
	// Enclosing is the function the range was taken from.
	Enclosing *ast.FuncDecl

	Statements []ast.Stmt
	Method     *ast.FuncDecl
	Residual   []byte

	OriginalMetric    float64
	OpportunityMetric float64
	ResidualMetric    float64

	Signature Signature
	Name      string
	Placement *Placement
}

// Size is the line span used by the dominance filter.
func (c *Candidate) Size() int { return c.EndLine - c.StartLine }

// Benefit rewards candidates whose extraction most lowers the worse of the
// two resulting cohesion readings.
func (c *Candidate) Benefit() float64 {
	return c.OriginalMetric - math.Max(c.OpportunityMetric, c.ResidualMetric)
}

// Body returns the extracted method body. A single statement that already is
// a block is used as the body directly instead of being wrapped again.
func (c *Candidate) Body() *ast.BlockStmt {
	if len(c.Statements) == 1 {
		if blk, ok := c.Statements[0].(*ast.BlockStmt); ok {
			return blk
		}
	}
	return &ast.BlockStmt{List: c.Statements}
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s:%d-%d", c.File, c.StartLine, c.EndLine)
}

// Param is one inferred parameter or return value.
type Param struct {
	Name string
	Type TypeDescriptor
}

// Signature is the inferred interface of an extracted method.
type Signature struct {
	Params []Param
	Return *Param
	// ReturnCandidates is set when more than one variable qualifies as the
	// return value; the caller has to pick one.
	ReturnCandidates []string
}

// TypeDescriptor is a language-neutral description of a resolved type.
type TypeDescriptor struct {
	Name      string
	Dims      int
	Primitive bool
}

func (t TypeDescriptor) String() string {
	return strings.Repeat("[]", t.Dims) + t.Name
}

// Expr renders the descriptor as a Go type expression.
func (t TypeDescriptor) Expr() ast.Expr {
	var expr ast.Expr = &ast.Ident{Name: t.Name}
	if !t.Primitive {
		if name, err := parseTypeName(t.Name); err == nil {
			expr = name
		}
	}
	for i := 0; i < t.Dims; i++ {
		expr = &ast.ArrayType{Elt: expr}
	}
	return expr
}

func parseTypeName(name string) (ast.Expr, error) {
	if name == "" {
		return nil, fmt.Errorf("empty type name")
	}
	if strings.HasPrefix(name, "*") {
		inner, err := parseTypeName(name[1:])
		if err != nil {
			return nil, err
		}
		return &ast.StarExpr{X: inner}, nil
	}
	if pkg, sel, ok := strings.Cut(name, "."); ok && !strings.ContainsAny(name, "[]{}() ") {
		return &ast.SelectorExpr{X: &ast.Ident{Name: pkg}, Sel: &ast.Ident{Name: sel}}, nil
	}
	return &ast.Ident{Name: name}, nil
}

// Placement records where a candidate should live and what moving it there did.
type Placement struct {
	// TargetType is the receiver type the method ends up on.
	TargetType string
	// Local is true when the method stays in its original type.
	Local bool
	// Improvement is the cohesion reduction for cross-class placements, where
	// a value <= 0 means rejected. For local placements it is the complexity
	// reduction of the enclosing method and is informational only.
	Improvement float64
	Before      map[string]float64
	After       map[string]float64
}
