package extract

import (
	"go/ast"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/types"
)

const reportSource = `package billing

type Report struct {
	items []int
	total int
	title string
}

func (r *Report) Build(prefix string) string {
	sum := 0
	for _, v := range r.items {
		sum += v
	}
	r.total = sum
	label := prefix + r.title
	label = label + "!"
	return label
}

func (r *Report) Split() int {
	a := r.total
	b := r.total
	a = a + b
	b = b + a
	return a + b + r.total
}

func (r *Report) Scoped() {
	{
		r.total = 0
	}
}
`

type fixture struct {
	parser *analysis.GoParser
	ws     *types.Workspace
	pkg    *types.Package
	file   *types.File
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	p, err := analysis.NewParser(discardLogger())
	require.NoError(t, err)
	ws, pkg, err := p.LoadPackage(dir)
	require.NoError(t, err)
	f := &fixture{parser: p, ws: ws, pkg: pkg}
	for _, file := range pkg.Files {
		f.file = file
		break
	}
	return f
}

func loadReport(t *testing.T) *fixture {
	return loadFixture(t, map[string]string{"report.go": reportSource})
}

func (f *fixture) unit(t *testing.T, typeName, method string) *analysis.Unit {
	t.Helper()
	u, err := analysis.FindUnit(f.pkg, typeName, method)
	require.NoError(t, err)
	return u
}

func (f *fixture) synthesizer() *Synthesizer {
	return NewSynthesizer(f.parser.FileSet(), f.file.Path, f.file.OriginalContent, DefaultTolerance)
}

// leafStatements counts the non-compound statements under n.
func leafStatements(n ast.Node) int {
	count := 0
	ast.Inspect(n, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.AssignStmt, *ast.ExprStmt, *ast.ReturnStmt, *ast.IncDecStmt, *ast.DeclStmt:
			count++
		}
		return true
	})
	return count
}
