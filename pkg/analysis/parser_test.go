package analysis

import (
	gotypes "go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/extractor/pkg/types"
)

const counterSource = `package counter

import "fmt"

type Counter struct {
	n int
}

func (c *Counter) Inc() {
	c.n++
	fmt.Println(c.n)
}
`

func TestNewParser_BadGlob(t *testing.T) {
	_, err := NewParser(discardLogger(), "[")
	assert.Error(t, err)
}

func TestParser_ParseFile(t *testing.T) {
	p, err := NewParser(discardLogger())
	require.NoError(t, err)
	path := filepath.Join(writePackage(t, map[string]string{"counter.go": counterSource}), "counter.go")

	file, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
	assert.Equal(t, "counter", file.AST.Name.Name)
	assert.Equal(t, counterSource, string(file.OriginalContent))
	require.Len(t, file.AST.Imports, 1)
	assert.Equal(t, `"fmt"`, file.AST.Imports[0].Path.Value)
}

func TestParser_ParseFile_Errors(t *testing.T) {
	p, err := NewParser(discardLogger())
	require.NoError(t, err)

	_, err = p.ParseFile("/non/existent/file.go")
	assert.True(t, types.IsErrorType(err, types.FileSystemError))

	dir := writePackage(t, map[string]string{"invalid.go": "package test\n\nfunc Broken( {\n}\n"})
	_, err = p.ParseFile(filepath.Join(dir, "invalid.go"))
	assert.True(t, types.IsErrorType(err, types.ParseError))
}

func TestParser_LoadPackage(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"counter.go":      counterSource,
		"counter_test.go": "package counter\n",
		"zz_gen.go":       "package counter\n\nfunc Generated() {}\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "other.go"), []byte("package sub\n"), 0o644))

	p, err := NewParser(discardLogger(), "*_gen.go")
	require.NoError(t, err)
	ws, pkg, err := p.LoadPackage(dir)
	require.NoError(t, err)

	assert.Equal(t, "counter", pkg.Name)
	assert.Equal(t, "counter", pkg.ImportPath, "no go.mod: the package name is the import path")
	assert.Contains(t, pkg.Files, "counter.go")
	assert.NotContains(t, pkg.Files, "zz_gen.go")
	assert.Contains(t, pkg.TestFiles, "counter_test.go")
	assert.Len(t, pkg.Files, 1, "subdirectories are not part of the package")
	assert.Same(t, p.FileSet(), ws.FileSet)
	require.NotNil(t, pkg.TypesInfo)
	assert.NotNil(t, pkg.TypesPkg.Scope().Lookup("Counter"))
}

func TestParser_LoadPackage_Module(t *testing.T) {
	root := writePackage(t, map[string]string{"go.mod": "module example.com/shop\n\ngo 1.25\n"})
	dir := filepath.Join(root, "billing")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "counter.go"), []byte(counterSource), 0o644))

	p, err := NewParser(discardLogger())
	require.NoError(t, err)
	ws, pkg, err := p.LoadPackage(dir)
	require.NoError(t, err)

	assert.Equal(t, root, ws.RootPath)
	require.NotNil(t, ws.Module)
	assert.Equal(t, "example.com/shop", ws.Module.Path)
	assert.Equal(t, "example.com/shop/billing", pkg.ImportPath)
}

func TestParser_LoadPackage_Empty(t *testing.T) {
	p, err := NewParser(discardLogger())
	require.NoError(t, err)

	_, _, err = p.LoadPackage(writePackage(t, map[string]string{"doc.txt": "nothing"}))
	assert.True(t, types.IsErrorType(err, types.ParseError))
}

func TestParser_WithFile(t *testing.T) {
	p, pkg := loadPackage(t, map[string]string{"counter.go": counterSource})
	path := pkg.Files["counter.go"].Path

	edited := counterSource + "\nfunc (c *Counter) Reset() { c.n = 0 }\n"
	cp, err := p.WithFile(pkg, path, []byte(edited))
	require.NoError(t, err)

	assert.NotSame(t, pkg, cp)
	assert.Equal(t, edited, string(cp.Files["counter.go"].OriginalContent))
	assert.Equal(t, counterSource, string(pkg.Files["counter.go"].OriginalContent), "original package untouched")
	assert.Same(t, cp, cp.Files["counter.go"].Package)

	methods := func(pkg *types.Package) int {
		obj := pkg.TypesPkg.Scope().Lookup("Counter")
		require.NotNil(t, obj)
		return gotypes.NewMethodSet(gotypes.NewPointer(obj.Type())).Len()
	}
	assert.Equal(t, 2, methods(cp))
	assert.Equal(t, 1, methods(pkg))

	_, err = p.WithFile(pkg, filepath.Join(pkg.Dir, "missing.go"), []byte("package counter\n"))
	assert.True(t, types.IsErrorType(err, types.SymbolNotFound))
}

func TestParser_Excluded(t *testing.T) {
	p, err := NewParser(discardLogger(), "*_gen.go", "mocks/*.go")
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"/src/billing/report_gen.go", true},
		{"/src/billing/report.go", false},
		{"mocks/store.go", true},
		{"/src/billing/generator.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Excluded(tt.path))
		})
	}
}
