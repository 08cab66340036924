// Package extract mines extract-method opportunities from a function or a
// type, turns them into candidate methods and ranks them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/metrics"
	"github.com/mamaar/extractor/pkg/naming"
	"github.com/mamaar/extractor/pkg/types"
)

// Evaluator places a candidate and measures the effect of the move.
type Evaluator interface {
	Evaluate(ctx context.Context, ws *types.Workspace, unit *analysis.Unit, c *types.Candidate) (*types.Placement, error)
}

// Result is the outcome of mining one unit.
type Result struct {
	Unit string
	File string
	// Table is the per-line symbol table the opportunities were mined from.
	Table *types.LineSymbols
	// Opportunities is the number of raw opportunities mined.
	Opportunities int
	// Synthesized is the number of opportunities that became candidates.
	Synthesized int
	// Dropped counts discarded opportunities by reason.
	Dropped map[string]int
	// Candidates are the surviving candidates, best first.
	Candidates  []*types.Candidate
	Ambiguities []*types.AmbiguousReturnError
}

// Extractor runs the mining pipeline.
type Extractor struct {
	parser        *analysis.GoParser
	calc          metrics.Calculator
	evaluator     Evaluator
	namer         naming.Namer
	namingTimeout time.Duration
	tolerance     int
	logger        *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTolerance sets the residual drift tolerance in lines.
func WithTolerance(n int) Option {
	return func(e *Extractor) { e.tolerance = n }
}

// WithNamer sets the naming collaborator and the per-call timeout.
func WithNamer(n naming.Namer, timeout time.Duration) Option {
	return func(e *Extractor) {
		e.namer = n
		e.namingTimeout = timeout
	}
}

// WithEvaluator sets the placement evaluator. Without one candidates are
// returned unplaced.
func WithEvaluator(ev Evaluator) Option {
	return func(e *Extractor) { e.evaluator = ev }
}

// WithCalculator replaces the metric calculator.
func WithCalculator(c metrics.Calculator) Option {
	return func(e *Extractor) { e.calc = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor over packages loaded by parser.
func NewExtractor(parser *analysis.GoParser, opts ...Option) *Extractor {
	e := &Extractor{
		parser:        parser,
		calc:          metrics.NewCalculator(),
		namer:         naming.Static{},
		namingTimeout: naming.DefaultTimeout,
		tolerance:     DefaultTolerance,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract mines unit. Only an unusable symbol table aborts the run; every
// other failure drops the affected opportunity and is counted in
// Result.Dropped.
func (e *Extractor) Extract(ctx context.Context, ws *types.Workspace, unit *analysis.Unit) (*Result, error) {
	fset := e.parser.FileSet()
	res := &Result{
		Unit:    unit.String(),
		File:    unit.File.Path,
		Dropped: make(map[string]int),
	}

	table, err := analysis.BuildLineSymbols(fset, unit.Nodes()...)
	if err != nil {
		return nil, fmt.Errorf("build symbol table for %s: %w", unit, err)
	}
	res.Table = table

	ops := Mine(table)
	res.Opportunities = len(ops)
	e.logger.Debug("mined opportunities", "unit", unit.String(), "lines", table.Len(), "opportunities", len(ops))

	candidates, err := e.synthesize(ctx, ws, unit, ops, res)
	if err != nil {
		return nil, err
	}
	res.Synthesized = len(candidates)

	candidates = Process(candidates)
	e.logger.Debug("dominance filter", "unit", unit.String(), "before", res.Synthesized, "after", len(candidates))

	resolver := analysis.NewTypesResolver(unit.Package)
	recvName := unitReceiver(unit)
	for _, c := range candidates {
		sig, err := InferSignature(c, c.Enclosing, fset, resolver)
		var ambiguous *types.AmbiguousReturnError
		if errors.As(err, &ambiguous) {
			res.Ambiguities = append(res.Ambiguities, ambiguous)
		}
		c.Signature = sig
		c.Method = MethodDecl(c, recvName, unit.TypeName)
	}

	if e.evaluator != nil {
		placed := candidates[:0]
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			placement, err := e.evaluator.Evaluate(ctx, ws, unit, c)
			if err != nil {
				e.logger.Warn("evaluation failed", "candidate", c.String(), "err", err)
				res.Dropped[types.EvaluationFailure.String()]++
				continue
			}
			c.Placement = placement
			placed = append(placed, c)
		}
		candidates = placed
	}

	for _, c := range candidates {
		c.Name = naming.WithFallback(ctx, e.namer, e.namingTimeout, printBody(fset, c.Body()), e.logger)
		c.Method = MethodDecl(c, recvName, placementType(unit, c))
	}

	rank(candidates)
	res.Candidates = candidates
	return res, nil
}

// synthesize turns opportunities into candidates with their three cohesion
// readings.
func (e *Extractor) synthesize(ctx context.Context, ws *types.Workspace, unit *analysis.Unit, ops []types.Opportunity, res *Result) ([]*types.Candidate, error) {
	fset := e.parser.FileSet()
	pkg := unit.Package
	synth := NewSynthesizer(fset, unit.File.Path, unit.File.OriginalContent, e.tolerance)

	original, err := e.cohesion(ws, pkg, unit.TypeName)
	if err != nil {
		return nil, err
	}

	var out []*types.Candidate
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fn := unit.Enclosing(fset, op.Start(), op.End())
		if fn == nil {
			res.Dropped["spans_functions"]++
			continue
		}
		maxLine := fset.Position(fn.Body.Rbrace).Line - 1

		c, err := synth.Synthesize(op.Start(), op.End(), maxLine)
		if err != nil {
			e.logger.Debug("synthesis failed", "start", op.Start(), "end", op.End(), "err", err)
			res.Dropped[types.SynthesisFailure.String()]++
			continue
		}
		c.Opportunity = op
		c.Enclosing = fn
		c.OriginalMetric = original

		if err := e.readings(ws, unit, c); err != nil {
			e.logger.Debug("cohesion readings failed", "candidate", c.String(), "err", err)
			res.Dropped[types.SynthesisFailure.String()]++
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// readings measures the type with the range removed, and with the range
// removed plus the extracted method attached to the type.
func (e *Extractor) readings(ws *types.Workspace, unit *analysis.Unit, c *types.Candidate) error {
	if unit.TypeName == "" {
		return nil
	}
	residualPkg, err := e.parser.WithFile(unit.Package, unit.File.Path, c.Residual)
	if err != nil {
		return err
	}
	if c.ResidualMetric, err = e.cohesion(ws, residualPkg, unit.TypeName); err != nil {
		return err
	}

	method, err := RenderMethod(e.parser.FileSet(), c, unitReceiver(unit), unit.TypeName)
	if err != nil {
		return err
	}
	opportunityPkg, err := e.parser.WithFile(unit.Package, unit.File.Path, AppendMethod(c.Residual, method))
	if err != nil {
		return err
	}
	c.OpportunityMetric, err = e.cohesion(ws, opportunityPkg, unit.TypeName)
	return err
}

func (e *Extractor) cohesion(ws *types.Workspace, pkg *types.Package, typeName string) (float64, error) {
	if typeName == "" {
		return 0, nil
	}
	return e.calc.Cohesion(ws, pkg, typeName)
}

// rank orders by benefit, then by placement improvement, both descending.
func rank(candidates []*types.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		bi, bj := candidates[i].Benefit(), candidates[j].Benefit()
		if bi != bj {
			return bi > bj
		}
		return improvement(candidates[i]) > improvement(candidates[j])
	})
}

func improvement(c *types.Candidate) float64 {
	if c.Placement == nil {
		return 0
	}
	return c.Placement.Improvement
}

func placementType(unit *analysis.Unit, c *types.Candidate) string {
	if c.Placement != nil && c.Placement.TargetType != "" {
		return c.Placement.TargetType
	}
	return unit.TypeName
}

func unitReceiver(unit *analysis.Unit) string {
	for _, fn := range unit.Funcs {
		if name := receiverIdentName(fn); name != "" && name != "_" {
			return name
		}
	}
	return "r"
}
