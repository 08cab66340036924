package extract

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/printer"
	"go/token"

	"github.com/mamaar/extractor/pkg/types"
)

// MethodDecl builds the declaration of c's extracted method. With a
// receiver type it becomes a method on *recvType named recvName; a return
// value, when inferred, is returned by a trailing return statement.
func MethodDecl(c *types.Candidate, recvName, recvType string) *ast.FuncDecl {
	body := c.Body()
	list := make([]ast.Stmt, len(body.List), len(body.List)+1)
	copy(list, body.List)
	if c.Signature.Return != nil {
		list = append(list, &ast.ReturnStmt{Results: []ast.Expr{ast.NewIdent(c.Signature.Return.Name)}})
	}

	params := &ast.FieldList{}
	for _, p := range c.Signature.Params {
		params.List = append(params.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(p.Name)},
			Type:  p.Type.Expr(),
		})
	}

	fn := &ast.FuncDecl{
		Name: ast.NewIdent(c.Name),
		Type: &ast.FuncType{Params: params},
		Body: &ast.BlockStmt{List: list},
	}
	if c.Signature.Return != nil {
		fn.Type.Results = &ast.FieldList{List: []*ast.Field{{Type: c.Signature.Return.Type.Expr()}}}
	}
	if recvType != "" {
		if recvName == "" {
			recvName = "r"
		}
		fn.Recv = &ast.FieldList{List: []*ast.Field{{
			Names: []*ast.Ident{ast.NewIdent(recvName)},
			Type:  &ast.StarExpr{X: ast.NewIdent(recvType)},
		}}}
	}
	return fn
}

// RenderMethod prints the extracted method as gofmt-formatted source.
func RenderMethod(fset *token.FileSet, c *types.Candidate, recvName, recvType string) ([]byte, error) {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, MethodDecl(c, recvName, recvType)); err != nil {
		return nil, fmt.Errorf("print extracted method: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), nil
	}
	return src, nil
}

// AppendMethod returns file content with the rendered method appended.
func AppendMethod(content, method []byte) []byte {
	out := make([]byte, 0, len(content)+len(method)+2)
	out = append(out, bytes.TrimRight(content, "\n")...)
	out = append(out, '\n', '\n')
	out = append(out, method...)
	out = append(out, '\n')
	return out
}
