// Package analyzers runs golang.org/x/tools analyzers over packages that
// were loaded by the workspace parser instead of go/packages.
package analyzers

import (
	"fmt"
	"go/ast"
	"go/types"
	"sort"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	wstypes "github.com/mamaar/extractor/pkg/types"
)

// RunResult holds the typed result of one analyzer and the diagnostics it
// reported.
type RunResult struct {
	Result      any
	Diagnostics []analysis.Diagnostic
}

// Run executes a against every package of ws in directory order. The
// diagnostics of all packages are combined; Result is the last package's.
func Run(ws *wstypes.Workspace, a *analysis.Analyzer) (*RunResult, error) {
	dirs := make([]string, 0, len(ws.Packages))
	for dir := range ws.Packages {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	combined := &RunResult{}
	for _, dir := range dirs {
		rr, err := RunPackage(ws, a, ws.Packages[dir])
		if err != nil {
			return nil, err
		}
		combined.Diagnostics = append(combined.Diagnostics, rr.Diagnostics...)
		combined.Result = rr.Result
	}
	return combined, nil
}

// RunPackage executes a against one package. Required analyzers run first,
// each at most once.
func RunPackage(ws *wstypes.Workspace, a *analysis.Analyzer, pkg *wstypes.Package) (*RunResult, error) {
	r := &packageRun{ws: ws, pkg: pkg, results: make(map[*analysis.Analyzer]any)}
	r.prepare()

	var diags []analysis.Diagnostic
	res, err := r.run(a, func(d analysis.Diagnostic) { diags = append(diags, d) })
	if err != nil {
		return nil, err
	}
	return &RunResult{Result: res, Diagnostics: diags}, nil
}

// packageRun is the shared state of the passes over one package.
type packageRun struct {
	ws        *wstypes.Workspace
	pkg       *wstypes.Package
	files     []*ast.File
	typesPkg  *types.Package
	typesInfo *types.Info
	results   map[*analysis.Analyzer]any
}

func (r *packageRun) prepare() {
	files := r.pkg.ASTFiles()
	sort.Slice(files, func(i, j int) bool {
		return r.ws.FileSet.Position(files[i].Pos()).Filename < r.ws.FileSet.Position(files[j].Pos()).Filename
	})
	r.files = files

	r.typesPkg = r.pkg.TypesPkg
	if r.typesPkg == nil {
		r.typesPkg = types.NewPackage(r.pkg.ImportPath, r.pkg.Name)
	}
	r.typesInfo = r.pkg.TypesInfo
	if r.typesInfo == nil {
		r.typesInfo = &types.Info{}
	}
}

func (r *packageRun) run(a *analysis.Analyzer, report func(analysis.Diagnostic)) (any, error) {
	pass := &analysis.Pass{
		Analyzer:  a,
		Fset:      r.ws.FileSet,
		Files:     r.files,
		Pkg:       r.typesPkg,
		TypesInfo: r.typesInfo,
		Report:    report,
		ResultOf:  make(map[*analysis.Analyzer]any, len(a.Requires)),
	}

	for _, req := range a.Requires {
		res, err := r.required(req)
		if err != nil {
			return nil, err
		}
		pass.ResultOf[req] = res
	}

	res, err := a.Run(pass)
	if err != nil {
		return nil, fmt.Errorf("analyzer %s on %s: %w", a.Name, r.pkg.Name, err)
	}
	return res, nil
}

// required returns the memoized result of a prerequisite. Its diagnostics
// are dropped.
func (r *packageRun) required(req *analysis.Analyzer) (any, error) {
	if res, ok := r.results[req]; ok {
		return res, nil
	}
	var res any
	if req == inspect.Analyzer {
		res = inspector.New(r.files)
	} else {
		var err error
		res, err = r.run(req, func(analysis.Diagnostic) {})
		if err != nil {
			return nil, err
		}
	}
	r.results[req] = res
	return res, nil
}
