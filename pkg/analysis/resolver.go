package analysis

import (
	"go/ast"
	gotypes "go/types"

	"github.com/mamaar/extractor/pkg/types"
)

// Resolver answers what an identifier occurrence denotes.
type Resolver interface {
	Resolve(id *ast.Ident) (types.Binding, bool)
}

// TypesResolver resolves identifiers through go/types information recorded
// for a type-checked package.
type TypesResolver struct {
	info *gotypes.Info
	pkg  *gotypes.Package
}

// NewTypesResolver returns a resolver over pkg's type information. A package
// that was never type-checked resolves nothing.
func NewTypesResolver(pkg *types.Package) *TypesResolver {
	return &TypesResolver{info: pkg.TypesInfo, pkg: pkg.TypesPkg}
}

// Resolve implements Resolver.
func (r *TypesResolver) Resolve(id *ast.Ident) (types.Binding, bool) {
	if r.info == nil || id == nil {
		return types.Binding{}, false
	}

	declaration := false
	obj := r.info.Uses[id]
	if obj == nil {
		obj = r.info.Defs[id]
		declaration = obj != nil
	}
	if obj == nil {
		return types.Binding{}, false
	}

	b := types.Binding{
		Kind:        kindOf(obj),
		Declaration: declaration,
	}
	if obj.Type() != nil {
		b.Type = gotypes.TypeString(obj.Type(), r.qualifier)
	}
	switch {
	case obj.Pkg() == nil:
		b.Scope = "universe"
	case obj.Parent() == obj.Pkg().Scope():
		b.Scope = obj.Pkg().Name()
	case obj.Parent() != nil:
		b.Scope = "local"
	}
	return b, true
}

// qualifier renders types of the analyzed package unqualified and every
// other package by its name.
func (r *TypesResolver) qualifier(p *gotypes.Package) string {
	if r.pkg != nil && p.Path() == r.pkg.Path() {
		return ""
	}
	return p.Name()
}

func kindOf(obj gotypes.Object) types.SymbolKind {
	switch o := obj.(type) {
	case *gotypes.Var:
		if o.IsField() {
			return types.StructFieldSymbol
		}
		return types.VariableSymbol
	case *gotypes.Func:
		if sig, ok := o.Type().(*gotypes.Signature); ok && sig.Recv() != nil {
			return types.MethodSymbol
		}
		return types.FunctionSymbol
	case *gotypes.TypeName:
		return types.TypeSymbol
	case *gotypes.Const:
		return types.ConstantSymbol
	case *gotypes.PkgName:
		return types.PackageSymbol
	default:
		return types.UnknownSymbol
	}
}
