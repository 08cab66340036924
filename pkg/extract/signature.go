package extract

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"

	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/types"
)

// occurrence is one identifier of a local variable inside the enclosing function.
type occurrence struct {
	id      *ast.Ident
	line    int
	binding types.Binding
}

// InferSignature derives the parameters and return value of c from the
// variables of fn, the function the candidate's lines were taken from.
//
// Parameters are variables read in the range but not declared there whose
// names appear in the printed extracted body. The return value is the single
// variable assigned in the range and read after it. When several variables
// qualify the signature carries them in ReturnCandidates and an
// *types.AmbiguousReturnError is returned alongside it.
func InferSignature(c *types.Candidate, fn *ast.FuncDecl, fset *token.FileSet, resolver analysis.Resolver) (types.Signature, error) {
	var sig types.Signature
	if fn == nil || fn.Body == nil {
		return sig, nil
	}

	bodyText := printBody(fset, c.Body())
	receiver := receiverIdentName(fn)
	assignedIDs := assignmentTargets(fn.Body)

	var declared, used, usedAfter, assigned []occurrence
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		b, ok := resolver.Resolve(id)
		if !ok || b.Kind != types.VariableSymbol || b.Scope != "local" {
			return true
		}
		occ := occurrence{id: id, line: fset.Position(id.Pos()).Line, binding: b}
		switch {
		case occ.line >= c.StartLine && occ.line <= c.EndLine:
			if b.Declaration {
				declared = append(declared, occ)
			} else {
				used = append(used, occ)
			}
			if assignedIDs[id] {
				assigned = append(assigned, occ)
			}
		case occ.line > c.EndLine && !b.Declaration:
			usedAfter = append(usedAfter, occ)
		}
		return true
	})

	for _, occ := range used {
		name := occ.id.Name
		if name == receiver || containsName(declared, name) || hasParam(sig.Params, name) {
			continue
		}
		if !strings.Contains(bodyText, name) {
			continue
		}
		sig.Params = append(sig.Params, types.Param{Name: name, Type: TypeDescriptorFor(occ.binding.Type)})
	}

	var returns []occurrence
	for _, occ := range assigned {
		name := occ.id.Name
		if !containsName(usedAfter, name) || containsName(returns, name) || !strings.Contains(bodyText, name) {
			continue
		}
		returns = append(returns, occ)
	}

	switch len(returns) {
	case 0:
	case 1:
		sig.Return = &types.Param{Name: returns[0].id.Name, Type: TypeDescriptorFor(returns[0].binding.Type)}
	default:
		for _, occ := range returns {
			sig.ReturnCandidates = append(sig.ReturnCandidates, occ.id.Name)
		}
		return sig, &types.AmbiguousReturnError{
			Candidates: sig.ReturnCandidates,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
		}
	}
	return sig, nil
}

// assignmentTargets collects the identifiers written by =, op=, := and ++/--.
func assignmentTargets(body *ast.BlockStmt) map[*ast.Ident]bool {
	targets := make(map[*ast.Ident]bool)
	ast.Inspect(body, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.AssignStmt:
			for _, lhs := range s.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
					targets[id] = true
				}
			}
		case *ast.IncDecStmt:
			if id, ok := s.X.(*ast.Ident); ok {
				targets[id] = true
			}
		}
		return true
	})
	return targets
}

// primitiveTypes are the predeclared Go basic types.
var primitiveTypes = map[string]bool{
	"bool": true, "string": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

// TypeDescriptorFor maps a rendered type name to a descriptor. Slice
// prefixes and trailing [] pairs both count as dimensions.
func TypeDescriptorFor(typeName string) types.TypeDescriptor {
	name := strings.TrimSpace(typeName)
	dims := 0
	for {
		switch {
		case strings.HasPrefix(name, "[]"):
			name = name[2:]
		case strings.HasSuffix(name, "[]"):
			name = name[:len(name)-2]
		default:
			return types.TypeDescriptor{Name: name, Dims: dims, Primitive: primitiveTypes[name]}
		}
		dims++
	}
}

func printBody(fset *token.FileSet, body *ast.BlockStmt) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, body); err != nil {
		return ""
	}
	return buf.String()
}

func receiverIdentName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 || len(fn.Recv.List[0].Names) == 0 {
		return ""
	}
	return fn.Recv.List[0].Names[0].Name
}

func containsName(occs []occurrence, name string) bool {
	for _, o := range occs {
		if o.id.Name == name {
			return true
		}
	}
	return false
}

func hasParam(params []types.Param, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}
