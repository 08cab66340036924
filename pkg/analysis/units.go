package analysis

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"github.com/mamaar/extractor/pkg/types"
)

// Unit is the body of code mined in one run: a single method or function,
// or every method of a type declared in the type's own file.
type Unit struct {
	Package *types.Package
	// File holds the method, or the type declaration for whole-type units.
	File     *types.File
	TypeName string
	// Method is nil for whole-type units.
	Method *ast.FuncDecl
	Funcs  []*ast.FuncDecl
}

// IsMethod reports whether the unit is a single function or method.
func (u *Unit) IsMethod() bool { return u.Method != nil }

// Nodes returns the syntax nodes the symbol table is built from.
func (u *Unit) Nodes() []ast.Node {
	nodes := make([]ast.Node, len(u.Funcs))
	for i, fn := range u.Funcs {
		nodes[i] = fn
	}
	return nodes
}

// Enclosing returns the function of the unit whose body contains the whole
// line range, or nil.
func (u *Unit) Enclosing(fset *token.FileSet, start, end int) *ast.FuncDecl {
	for _, fn := range u.Funcs {
		if fn.Body == nil {
			continue
		}
		first := fset.Position(fn.Body.Lbrace).Line
		last := fset.Position(fn.Body.Rbrace).Line
		if start > first && end < last {
			return fn
		}
	}
	return nil
}

func (u *Unit) String() string {
	switch {
	case u.Method != nil && u.TypeName != "":
		return u.TypeName + "." + u.Method.Name.Name
	case u.Method != nil:
		return u.Method.Name.Name
	default:
		return u.TypeName
	}
}

// FindUnit locates a unit in pkg. With a method name it returns that method
// of typeName (or the free function when typeName is empty); without one it
// returns the whole type.
func FindUnit(pkg *types.Package, typeName, methodName string) (*Unit, error) {
	if methodName != "" {
		return findMethod(pkg, typeName, methodName)
	}
	if typeName == "" {
		return nil, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "either a type or a method name is required",
		}
	}

	file := TypeFile(pkg, typeName)
	if file == nil {
		return nil, &types.RefactorError{
			Type:    types.SymbolNotFound,
			Message: fmt.Sprintf("type %s not found in package %s", typeName, pkg.Name),
		}
	}

	u := &Unit{Package: pkg, File: file, TypeName: typeName}
	for _, decl := range file.AST.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Body != nil && ReceiverTypeName(fn) == typeName {
			u.Funcs = append(u.Funcs, fn)
		}
	}
	return u, nil
}

func findMethod(pkg *types.Package, typeName, methodName string) (*Unit, error) {
	for _, file := range sortedFiles(pkg) {
		for _, decl := range file.AST.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil || fn.Name.Name != methodName {
				continue
			}
			if ReceiverTypeName(fn) != typeName {
				continue
			}
			return &Unit{
				Package:  pkg,
				File:     file,
				TypeName: typeName,
				Method:   fn,
				Funcs:    []*ast.FuncDecl{fn},
			}, nil
		}
	}

	name := methodName
	if typeName != "" {
		name = typeName + "." + methodName
	}
	return nil, &types.RefactorError{
		Type:    types.SymbolNotFound,
		Message: fmt.Sprintf("function %s not found in package %s", name, pkg.Name),
	}
}

// ReceiverTypeName returns the base type name of fn's receiver, or "" for
// plain functions.
func ReceiverTypeName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

// StructTypes lists the struct types declared in pkg, by name.
func StructTypes(pkg *types.Package) []string {
	var names []string
	for _, file := range pkg.Files {
		for _, decl := range file.AST.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts := spec.(*ast.TypeSpec)
				if _, ok := ts.Type.(*ast.StructType); ok {
					names = append(names, ts.Name.Name)
				}
			}
		}
	}
	sort.Strings(names)
	return names
}

// TypeFile returns the file declaring typeName, or nil.
func TypeFile(pkg *types.Package, typeName string) *types.File {
	for _, file := range sortedFiles(pkg) {
		for _, decl := range file.AST.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				if spec.(*ast.TypeSpec).Name.Name == typeName {
					return file
				}
			}
		}
	}
	return nil
}

func sortedFiles(pkg *types.Package) []*types.File {
	names := make([]string, 0, len(pkg.Files))
	for name := range pkg.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	files := make([]*types.File, len(names))
	for i, name := range names {
		files[i] = pkg.Files[name]
	}
	return files
}
