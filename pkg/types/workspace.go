package types

import (
	"go/ast"
	"go/token"
	gotypes "go/types"
)

// Workspace represents the set of Go packages loaded for one analysis run
type Workspace struct {
	RootPath string
	Module   *Module
	Packages map[string]*Package // directory -> Package
	FileSet  *token.FileSet
}

// Package represents a single Go package
type Package struct {
	Path       string // Filesystem directory (workspace key)
	ImportPath string
	Name       string
	Dir        string
	Files      map[string]*File // base filename -> File
	TestFiles  map[string]*File

	TypesInfo *gotypes.Info
	TypesPkg  *gotypes.Package
}

// File represents a single Go source file
type File struct {
	Path            string
	Package         *Package
	AST             *ast.File
	OriginalContent []byte
}

// Module represents Go module information
type Module struct {
	Path  string
	GoMod string // Contents of go.mod
}

// ASTFiles returns the parsed non-test files of the package.
func (p *Package) ASTFiles() []*ast.File {
	files := make([]*ast.File, 0, len(p.Files))
	for _, f := range p.Files {
		if f.AST != nil {
			files = append(files, f.AST)
		}
	}
	return files
}
