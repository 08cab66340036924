// Package evaluate simulates moving extracted methods and measures the
// effect on cohesion (moves to other types) or complexity (local moves).
package evaluate

import (
	"context"
	"go/ast"
	"fmt"
	"hash/fnv"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/metrics"
	"github.com/mamaar/extractor/pkg/types"
)

// DefaultCacheSize bounds the number of cached before-move readings.
const DefaultCacheSize = 256

// Evaluator finds the best placement for extracted methods.
type Evaluator struct {
	calc        metrics.Calculator
	logger      *slog.Logger
	workers     int
	crossClass  bool
	scratchRoot string
	cacheSize   int
	before      *lru.Cache[string, float64]
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds how many target trials run at once.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// WithCrossClass enables or disables trying other types as targets.
func WithCrossClass(enabled bool) Option {
	return func(e *Evaluator) { e.crossClass = enabled }
}

// WithScratchRoot sets the directory trial copies are created in.
func WithScratchRoot(dir string) Option {
	return func(e *Evaluator) { e.scratchRoot = dir }
}

// WithCacheSize sets how many before-move readings are kept.
func WithCacheSize(n int) Option {
	return func(e *Evaluator) { e.cacheSize = n }
}

// New creates an evaluator.
func New(calc metrics.Calculator, logger *slog.Logger, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		calc:       calc,
		logger:     logger,
		workers:    runtime.NumCPU(),
		crossClass: true,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	cache, err := lru.New[string, float64](max(e.cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("create metric cache: %w", err)
	}
	e.before = cache
	return e, nil
}

// trial is the outcome of moving a candidate to one target type.
type trial struct {
	target    string
	reduction float64
	before    map[string]float64
	after     map[string]float64
	err       error
}

func (t trial) afterTotal() float64 { return metrics.Sum(t.after) }

// Evaluate places c. A method of a type is first tried on every other
// struct type of its package; the target with the lowest combined cohesion
// after the move wins, provided the move lowers the combined reading at all.
// Otherwise the method stays local and the complexity change is reported.
func (e *Evaluator) Evaluate(ctx context.Context, ws *types.Workspace, unit *analysis.Unit, c *types.Candidate) (*types.Placement, error) {
	if e.crossClass && unit.IsMethod() && unit.TypeName != "" {
		if p := e.crossClassPlacement(ctx, ws, unit, c); p != nil {
			return p, nil
		}
		e.logger.Debug("no target improves cohesion, keeping method local", "candidate", c.String())
	}
	return e.local(ctx, ws, unit, c)
}

func (e *Evaluator) crossClassPlacement(ctx context.Context, ws *types.Workspace, unit *analysis.Unit, c *types.Candidate) *types.Placement {
	var targets []string
	for _, name := range analysis.StructTypes(unit.Package) {
		if name != unit.TypeName {
			targets = append(targets, name)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	results := make([]trial, len(targets))
	workers := min(e.workers, len(targets))

	var wg sync.WaitGroup
	idxCh := make(chan int, len(targets))
	for i := range targets {
		idxCh <- i
	}
	close(idxCh)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxCh {
				if ctx.Err() != nil {
					results[idx] = trial{target: targets[idx], err: ctx.Err()}
					continue
				}
				results[idx] = e.runTrial(ws, unit, c, targets[idx])
			}
		}()
	}
	wg.Wait()

	var improving []trial
	for _, t := range results {
		switch {
		case t.err != nil:
			e.logger.Warn("target trial failed", "candidate", c.String(), "target", t.target, "err", t.err)
		case t.reduction > 0:
			improving = append(improving, t)
		default:
			e.logger.Debug("skipping non-improving target", "candidate", c.String(), "target", t.target, "reduction", t.reduction)
		}
	}
	if len(improving) == 0 {
		return nil
	}

	sort.SliceStable(improving, func(i, j int) bool {
		return improving[i].afterTotal() < improving[j].afterTotal()
	})
	best := improving[0]
	return &types.Placement{
		TargetType:  best.target,
		Improvement: best.reduction,
		Before:      best.before,
		After:       best.after,
	}
}

// runTrial moves c to target inside a private copy of the package. The copy
// is removed however the trial ends.
func (e *Evaluator) runTrial(ws *types.Workspace, unit *analysis.Unit, c *types.Candidate, target string) (t trial) {
	t.target = target
	defer func() {
		if r := recover(); r != nil {
			t.err = evaluationFailure(unit, "trial for %s panicked: %v", target, r)
		}
	}()

	targetFile := analysis.TypeFile(unit.Package, target)
	if targetFile == nil {
		t.err = evaluationFailure(unit, "type %s has no declaring file", target)
		return t
	}

	beforeSource, err := e.beforeCohesion(ws, unit.Package, unit.TypeName)
	if err != nil {
		t.err = err
		return t
	}
	beforeTarget, err := e.beforeCohesion(ws, unit.Package, target)
	if err != nil {
		t.err = err
		return t
	}

	s, err := newScratch(e.scratchRoot, unit.Package)
	if err != nil {
		t.err = err
		return t
	}
	defer e.closeScratch(s)

	if err := s.WriteFile(filepath.Base(unit.File.Path), c.Residual); err != nil {
		t.err = err
		return t
	}
	method, err := extract.RenderMethod(ws.FileSet, c, receiverName(unit), target)
	if err != nil {
		t.err = err
		return t
	}
	targetName := filepath.Base(targetFile.Path)
	content, err := s.ReadFile(targetName)
	if err != nil {
		t.err = err
		return t
	}
	if err := s.WriteFile(targetName, extract.AppendMethod(content, method)); err != nil {
		t.err = err
		return t
	}

	sws, spkg, err := e.load(s)
	if err != nil {
		t.err = err
		return t
	}
	afterSource, err := e.calc.Cohesion(sws, spkg, unit.TypeName)
	if err != nil {
		t.err = err
		return t
	}
	afterTarget, err := e.calc.Cohesion(sws, spkg, target)
	if err != nil {
		t.err = err
		return t
	}

	t.before = map[string]float64{unit.TypeName: beforeSource, target: beforeTarget}
	t.after = map[string]float64{unit.TypeName: afterSource, target: afterTarget}
	t.reduction = (beforeSource + beforeTarget) - (afterSource + afterTarget)
	return t
}

// local keeps the extracted method on its own type and compares per-method
// cyclomatic complexity before and after. Improvement is the change of the
// method the range was taken from.
func (e *Evaluator) local(ctx context.Context, ws *types.Workspace, unit *analysis.Unit, c *types.Candidate) (p *types.Placement, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, evaluationFailure(unit, "local evaluation panicked: %v", r)
		}
	}()

	before, err := e.calc.Complexity(ws, unit.Package, unit.TypeName)
	if err != nil {
		return nil, evaluationFailure(unit, "complexity before move: %v", err)
	}

	s, err := newScratch(e.scratchRoot, unit.Package)
	if err != nil {
		return nil, err
	}
	defer e.closeScratch(s)

	method, err := extract.RenderMethod(ws.FileSet, c, receiverName(unit), unit.TypeName)
	if err != nil {
		return nil, err
	}
	if err := s.WriteFile(filepath.Base(unit.File.Path), extract.AppendMethod(c.Residual, method)); err != nil {
		return nil, err
	}

	sws, spkg, err := e.load(s)
	if err != nil {
		return nil, err
	}
	after, err := e.calc.Complexity(sws, spkg, unit.TypeName)
	if err != nil {
		return nil, evaluationFailure(unit, "complexity after move: %v", err)
	}

	key := complexityKey(unit.TypeName, c.Enclosing)
	return &types.Placement{
		TargetType:  unit.TypeName,
		Local:       true,
		Improvement: before[key] - after[key],
		Before:      before,
		After:       after,
	}, nil
}

func (e *Evaluator) load(s *scratch) (*types.Workspace, *types.Package, error) {
	p, err := analysis.NewParser(e.logger)
	if err != nil {
		return nil, nil, err
	}
	ws, pkg, err := p.LoadPackage(s.dir)
	if err != nil {
		return nil, nil, &types.RefactorError{
			Type:    types.EvaluationFailure,
			Message: fmt.Sprintf("reload trial copy: %v", err),
			File:    s.dir,
			Cause:   err,
		}
	}
	return ws, pkg, nil
}

func (e *Evaluator) closeScratch(s *scratch) {
	if err := s.Close(); err != nil {
		e.logger.Warn("failed to remove scratch directory", "dir", s.dir, "err", err)
	}
}

// beforeCohesion reads the cohesion of typeName in the unmodified package,
// cached by package content.
func (e *Evaluator) beforeCohesion(ws *types.Workspace, pkg *types.Package, typeName string) (float64, error) {
	key := fingerprint(pkg) + "/" + typeName
	if v, ok := e.before.Get(key); ok {
		return v, nil
	}
	v, err := e.calc.Cohesion(ws, pkg, typeName)
	if err != nil {
		return 0, err
	}
	e.before.Add(key, v)
	return v, nil
}

// fingerprint identifies a package by directory and file contents.
func fingerprint(pkg *types.Package) string {
	names := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		names = append(names, name)
	}
	slices.Sort(names)

	h := fnv.New64a()
	_, _ = h.Write([]byte(pkg.Dir))
	for _, name := range names {
		_, _ = h.Write([]byte(name))
		_, _ = h.Write(pkg.Files[name].OriginalContent)
	}
	return fmt.Sprintf("%s@%x", pkg.Dir, h.Sum64())
}

// complexityKey names fn the way the complexity readings do.
func complexityKey(typeName string, fn *ast.FuncDecl) string {
	if fn == nil {
		return ""
	}
	if typeName == "" || fn.Recv == nil {
		return fn.Name.Name
	}
	return typeName + "." + fn.Name.Name
}

func receiverName(unit *analysis.Unit) string {
	for _, fn := range unit.Funcs {
		if fn.Recv != nil && len(fn.Recv.List) > 0 && len(fn.Recv.List[0].Names) > 0 {
			if name := fn.Recv.List[0].Names[0].Name; name != "_" {
				return name
			}
		}
	}
	return "r"
}

func evaluationFailure(unit *analysis.Unit, format string, args ...any) error {
	return &types.RefactorError{
		Type:    types.EvaluationFailure,
		Message: fmt.Sprintf(format, args...),
		File:    unit.File.Path,
	}
}
