package evaluate

import (
	"context"
	"errors"
	"go/ast"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/metrics"
	"github.com/mamaar/extractor/pkg/naming"
	"github.com/mamaar/extractor/pkg/types"
)

const cartSource = `package shop

type Cart struct {
	items []int
	owner string
}

func (c *Cart) Total() int {
	n := 0
	for _, v := range c.items {
		n += v
	}
	return n
}

func (c *Cart) Owner() string {
	return c.owner
}
`

const ledgerSource = `package shop

type Ledger struct {
	entries []int
}

func (l *Ledger) Count() int {
	return len(l.entries)
}
`

const shelfSource = `package shop

type Shelf struct {
	slots int
}
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	parser *analysis.GoParser
	ws     *types.Workspace
	pkg    *types.Package
	unit   *analysis.Unit
	cand   *types.Candidate
}

// loadShop loads the shop package and synthesizes the loop of Cart.Total
// as a candidate.
func loadShop(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	p, err := analysis.NewParser(discardLogger())
	require.NoError(t, err)
	ws, pkg, err := p.LoadPackage(dir)
	require.NoError(t, err)

	unit, err := analysis.FindUnit(pkg, "Cart", "Total")
	require.NoError(t, err)

	synth := extract.NewSynthesizer(p.FileSet(), unit.File.Path, unit.File.OriginalContent, extract.DefaultTolerance)
	c, err := synth.Synthesize(10, 12, 13)
	require.NoError(t, err)
	c.Enclosing = unit.Method
	c.Signature, err = extract.InferSignature(c, unit.Method, p.FileSet(), analysis.NewTypesResolver(pkg))
	require.NoError(t, err)

	return &fixture{parser: p, ws: ws, pkg: pkg, unit: unit, cand: c}
}

func shopFiles(extra ...string) map[string]string {
	files := map[string]string{"cart.go": cartSource, "ledger.go": ledgerSource}
	for _, name := range extra {
		if name == "shelf.go" {
			files[name] = shelfSource
		}
	}
	return files
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch copies left behind")
}

func TestEvaluate_LocalWhenNoTargetImproves(t *testing.T) {
	f := loadShop(t, shopFiles())
	root := t.TempDir()
	e, err := New(metrics.NewCalculator(), discardLogger(), WithScratchRoot(root))
	require.NoError(t, err)

	p, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
	require.NoError(t, err)

	assert.True(t, p.Local)
	assert.Equal(t, "Cart", p.TargetType)
	assert.Equal(t, map[string]float64{"Cart.Total": 2, "Cart.Owner": 1}, p.Before)
	assert.Equal(t, 1.0, p.After["Cart.Total"])
	assert.Equal(t, 2.0, p.After["Cart."+naming.Placeholder])
	assert.Equal(t, 1.0, p.Improvement, "Cart.Total drops from 2 to 1")
	assertEmptyDir(t, root)
}

func TestEvaluate_CrossClassDisabled(t *testing.T) {
	f := loadShop(t, shopFiles())
	calc := newFakeCalc(f.pkg.Dir)
	calc.after = map[string]map[string]float64{"Ledger": {"Cart": 0, "Ledger": 0}}
	e, err := New(calc, discardLogger(), WithCrossClass(false), WithScratchRoot(t.TempDir()))
	require.NoError(t, err)

	p, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
	require.NoError(t, err)
	assert.True(t, p.Local)
	assert.Zero(t, calc.cohesionCalls())
}

func TestEvaluate_PicksLowestCombinedReading(t *testing.T) {
	f := loadShop(t, shopFiles("shelf.go"))
	calc := newFakeCalc(f.pkg.Dir)
	calc.before = map[string]float64{"Cart": 1.0, "Ledger": 0.5, "Shelf": 0.5}
	calc.after = map[string]map[string]float64{
		"Ledger": {"Cart": 0.2, "Ledger": 0.6},
		"Shelf":  {"Cart": 0.2, "Shelf": 0.4},
	}
	root := t.TempDir()
	e, err := New(calc, discardLogger(), WithScratchRoot(root), WithWorkers(2))
	require.NoError(t, err)

	p, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
	require.NoError(t, err)

	assert.False(t, p.Local)
	assert.Equal(t, "Shelf", p.TargetType)
	assert.InDelta(t, 0.9, p.Improvement, 1e-9)
	assert.Equal(t, map[string]float64{"Cart": 1.0, "Shelf": 0.5}, p.Before)
	assert.Equal(t, map[string]float64{"Cart": 0.2, "Shelf": 0.4}, p.After)
	assertEmptyDir(t, root)
}

func TestEvaluate_IgnoresNonImprovingTargets(t *testing.T) {
	f := loadShop(t, shopFiles("shelf.go"))
	calc := newFakeCalc(f.pkg.Dir)
	calc.before = map[string]float64{"Cart": 1.0, "Ledger": 0.5, "Shelf": 0.5}
	calc.after = map[string]map[string]float64{
		"Ledger": {"Cart": 1.0, "Ledger": 0.5},
		"Shelf":  {"Cart": 0.1, "Shelf": 0.3},
	}
	e, err := New(calc, discardLogger(), WithScratchRoot(t.TempDir()))
	require.NoError(t, err)

	p, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
	require.NoError(t, err)
	assert.Equal(t, "Shelf", p.TargetType)
	assert.InDelta(t, 1.1, p.Improvement, 1e-9)
}

func TestEvaluate_CachesBeforeReadings(t *testing.T) {
	f := loadShop(t, shopFiles("shelf.go"))
	calc := newFakeCalc(f.pkg.Dir)
	e, err := New(calc, discardLogger(), WithWorkers(1), WithScratchRoot(t.TempDir()))
	require.NoError(t, err)

	for range 2 {
		_, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calc.beforeCalls())
}

func TestEvaluate_TrialPanicIsContained(t *testing.T) {
	f := loadShop(t, shopFiles())
	calc := newFakeCalc(f.pkg.Dir)
	calc.panicOnCohesion = true
	root := t.TempDir()
	e, err := New(calc, discardLogger(), WithScratchRoot(root))
	require.NoError(t, err)

	p, err := e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
	require.NoError(t, err)
	assert.True(t, p.Local)
	assertEmptyDir(t, root)
}

func TestEvaluate_LocalFailures(t *testing.T) {
	tests := []struct {
		name string
		set  func(*fakeCalc)
	}{
		{"error", func(c *fakeCalc) { c.complexityErr = errors.New("boom") }},
		{"panic", func(c *fakeCalc) { c.panicOnComplexity = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := loadShop(t, shopFiles())
			calc := newFakeCalc(f.pkg.Dir)
			tt.set(calc)
			root := t.TempDir()
			e, err := New(calc, discardLogger(), WithCrossClass(false), WithScratchRoot(root))
			require.NoError(t, err)

			_, err = e.Evaluate(context.Background(), f.ws, f.unit, f.cand)
			require.Error(t, err)
			assert.True(t, types.IsErrorType(err, types.EvaluationFailure))
			assertEmptyDir(t, root)
		})
	}
}

func TestEvaluate_Canceled(t *testing.T) {
	f := loadShop(t, shopFiles())
	e, err := New(newFakeCalc(f.pkg.Dir), discardLogger(), WithScratchRoot(t.TempDir()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Evaluate(ctx, f.ws, f.unit, f.cand)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScratch_CopiesAndRemoves(t *testing.T) {
	f := loadShop(t, shopFiles())
	root := t.TempDir()

	s, err := newScratch(root, f.pkg)
	require.NoError(t, err)
	content, err := s.ReadFile("ledger.go")
	require.NoError(t, err)
	assert.Equal(t, ledgerSource, string(content))

	require.NoError(t, s.Close())
	assertEmptyDir(t, root)
}

func TestNewScratch_MissingRoot(t *testing.T) {
	f := loadShop(t, shopFiles())
	_, err := newScratch(filepath.Join(t.TempDir(), "missing"), f.pkg)
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.FileSystemError))
}

// fakeCalc answers readings from tables. Packages loaded from a trial copy
// are recognised by their directory; the move target is the type the
// extracted method was attached to.
type fakeCalc struct {
	origDir string

	before            map[string]float64
	after             map[string]map[string]float64
	complexityErr     error
	panicOnCohesion   bool
	panicOnComplexity bool

	mu        sync.Mutex
	nBefore   int
	nCohesion int
}

func newFakeCalc(origDir string) *fakeCalc {
	return &fakeCalc{origDir: origDir, before: map[string]float64{}, after: map[string]map[string]float64{}}
}

func (f *fakeCalc) Cohesion(_ *types.Workspace, pkg *types.Package, typeName string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nCohesion++
	if pkg.Dir == f.origDir {
		f.nBefore++
		return f.before[typeName], nil
	}
	if f.panicOnCohesion {
		panic("cohesion exploded")
	}
	return f.after[movedTo(pkg)][typeName], nil
}

func (f *fakeCalc) Complexity(_ *types.Workspace, pkg *types.Package, typeName string) (map[string]float64, error) {
	if pkg.Dir == f.origDir {
		return map[string]float64{typeName + ".Total": 2}, nil
	}
	if f.panicOnComplexity {
		panic("complexity exploded")
	}
	if f.complexityErr != nil {
		return nil, f.complexityErr
	}
	return map[string]float64{typeName + ".Total": 1}, nil
}

func (f *fakeCalc) beforeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nBefore
}

func (f *fakeCalc) cohesionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nCohesion
}

func movedTo(pkg *types.Package) string {
	for _, file := range pkg.Files {
		for _, d := range file.AST.Decls {
			fn, ok := d.(*ast.FuncDecl)
			if !ok || fn.Name.Name != naming.Placeholder || fn.Recv == nil {
				continue
			}
			if star, ok := fn.Recv.List[0].Type.(*ast.StarExpr); ok {
				if id, ok := star.X.(*ast.Ident); ok {
					return id.Name
				}
			}
		}
	}
	return ""
}

func TestComplexityKey(t *testing.T) {
	method := &ast.FuncDecl{Name: ast.NewIdent("Total"), Recv: &ast.FieldList{}}
	fn := &ast.FuncDecl{Name: ast.NewIdent("sum")}

	assert.Equal(t, "Cart.Total", complexityKey("Cart", method))
	assert.Equal(t, "sum", complexityKey("", fn))
	assert.Equal(t, "sum", complexityKey("Cart", fn))
	assert.Empty(t, complexityKey("Cart", nil))
}
