package analysis

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	gotypes "go/types"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/mamaar/extractor/pkg/types"
)

// GoParser handles Go code parsing and AST management
type GoParser struct {
	fileSet  *token.FileSet
	logger   *slog.Logger
	excludes []glob.Glob

	mu  sync.Mutex // guards std and type-checking
	std gotypes.Importer
}

// NewParser creates a parser. Files whose base name matches one of the
// exclude globs are skipped when loading a package.
func NewParser(logger *slog.Logger, excludes ...string) (*GoParser, error) {
	p := &GoParser{
		fileSet: token.NewFileSet(),
		logger:  logger,
	}
	for _, pattern := range excludes {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", pattern, err)
		}
		p.excludes = append(p.excludes, g)
	}
	return p, nil
}

// FileSet returns the file set every parsed file is registered in.
func (p *GoParser) FileSet() *token.FileSet { return p.fileSet }

// ParseFile parses a single Go file
func (p *GoParser) ParseFile(filename string) (*types.File, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}
	return p.ParseSource(filename, content)
}

// ParseSource parses in-memory content as if it were stored at filename.
func (p *GoParser) ParseSource(filename string, content []byte) (*types.File, error) {
	astFile, err := parser.ParseFile(p.fileSet, filename, content, parser.ParseComments)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("failed to parse file: %v", err),
			File:    filename,
			Cause:   err,
		}
	}

	return &types.File{
		Path:            filename,
		AST:             astFile,
		OriginalContent: content,
	}, nil
}

// ParsePackage parses all Go files in a package directory
func (p *GoParser) ParsePackage(dir string) (*types.Package, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to get absolute path: %v", err),
			File:    dir,
			Cause:   err,
		}
	}

	pkg := &types.Package{
		Path:      absDir,
		Dir:       absDir,
		Files:     make(map[string]*types.File),
		TestFiles: make(map[string]*types.File),
	}

	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip subdirectories for package parsing
		if d.IsDir() && path != absDir {
			return filepath.SkipDir
		}

		if !strings.HasSuffix(path, ".go") || p.Excluded(path) {
			return nil
		}

		file, err := p.ParseFile(path)
		if err != nil {
			return err
		}

		file.Package = pkg

		if strings.HasSuffix(path, "_test.go") {
			pkg.TestFiles[filepath.Base(path)] = file
			return nil
		}
		pkg.Files[filepath.Base(path)] = file
		if pkg.Name == "" {
			pkg.Name = file.AST.Name.Name
		}
		return nil
	})

	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to parse package: %v", err),
			File:    absDir,
			Cause:   err,
		}
	}

	if pkg.Name == "" {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: "no non-test Go files found in package",
			File:    absDir,
		}
	}

	return pkg, nil
}

// LoadPackage parses and type-checks the package in dir and wraps it in a
// single-package workspace.
func (p *GoParser) LoadPackage(dir string) (*types.Workspace, *types.Package, error) {
	p.logger.Debug("loading package", "dir", dir)

	pkg, err := p.ParsePackage(dir)
	if err != nil {
		return nil, nil, err
	}

	ws := &types.Workspace{
		RootPath: pkg.Dir,
		Packages: map[string]*types.Package{pkg.Path: pkg},
		FileSet:  p.fileSet,
	}
	if root, mod := findModule(pkg.Dir); mod != nil {
		ws.RootPath = root
		ws.Module = mod
		pkg.ImportPath = computeImportPath(ws, pkg.Dir)
	} else {
		pkg.ImportPath = pkg.Name
	}

	p.TypeCheckPackage(pkg)
	p.logger.Debug("package loaded", "name", pkg.Name, "files", len(pkg.Files), "import_path", pkg.ImportPath)
	return ws, pkg, nil
}

// WithFile returns a shallow copy of pkg in which the file at path is
// replaced by content. The copy is type-checked; the original is untouched.
func (p *GoParser) WithFile(pkg *types.Package, path string, content []byte) (*types.Package, error) {
	replaced, err := p.ParseSource(path, content)
	if err != nil {
		return nil, err
	}

	cp := &types.Package{
		Path:       pkg.Path,
		ImportPath: pkg.ImportPath,
		Name:       pkg.Name,
		Dir:        pkg.Dir,
		Files:      make(map[string]*types.File, len(pkg.Files)),
		TestFiles:  pkg.TestFiles,
	}
	found := false
	for name, f := range pkg.Files {
		if f.Path == path {
			replaced.Package = cp
			cp.Files[name] = replaced
			found = true
			continue
		}
		cp.Files[name] = f
	}
	if !found {
		return nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: "file is not part of the package",
			File:    path,
		}
	}

	p.TypeCheckPackage(cp)
	return cp, nil
}

// TypeCheckPackage runs go/types type-checking on a package.
// Results are stored in pkg.TypesInfo and pkg.TypesPkg.
// Type errors are ignored: go/types still records every object it could
// resolve, which is all binding resolution needs.
func (p *GoParser) TypeCheckPackage(pkg *types.Package) {
	files := pkg.ASTFiles()
	if len(files) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.std == nil {
		p.std = importer.Default()
	}
	conf := gotypes.Config{
		Importer: p.std,
		Error:    func(err error) {},
	}
	info := &gotypes.Info{
		Types: make(map[ast.Expr]gotypes.TypeAndValue),
		Defs:  make(map[*ast.Ident]gotypes.Object),
		Uses:  make(map[*ast.Ident]gotypes.Object),
	}

	typesPkg, err := conf.Check(pkg.ImportPath, p.fileSet, files, info)
	pkg.TypesInfo = info
	pkg.TypesPkg = typesPkg
	if err != nil {
		p.logger.Debug("type-checking incomplete (partial bindings kept)", "package", pkg.ImportPath, "err", err)
	}
}

// Excluded reports whether path matches one of the exclude globs.
func (p *GoParser) Excluded(path string) bool {
	base := filepath.Base(path)
	for _, g := range p.excludes {
		if g.Match(base) || g.Match(filepath.ToSlash(path)) {
			return true
		}
	}
	return false
}

// findModule walks up from dir looking for go.mod.
func findModule(dir string) (string, *types.Module) {
	for cur := dir; ; cur = filepath.Dir(cur) {
		content, err := os.ReadFile(filepath.Join(cur, "go.mod"))
		if err == nil {
			return cur, parseGoMod(content)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}
	}
}

func parseGoMod(content []byte) *types.Module {
	module := &types.Module{GoMod: string(content)}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			module.Path = strings.TrimSpace(strings.TrimPrefix(line, "module"))
			break
		}
	}
	return module
}

// computeImportPath computes the Go import path for a package given its filesystem path
func computeImportPath(ws *types.Workspace, fsPath string) string {
	if ws.Module == nil {
		return ""
	}
	relPath, err := filepath.Rel(ws.RootPath, fsPath)
	if err != nil || relPath == "." {
		return ws.Module.Path
	}
	return ws.Module.Path + "/" + filepath.ToSlash(relPath)
}
