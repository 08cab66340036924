package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/extractor/pkg/types"
)

func TestRenderMethod_WithSignature(t *testing.T) {
	f := loadReport(t)
	c, err := f.synthesizer().Synthesize(11, 12, 17)
	require.NoError(t, err)
	c.Signature = types.Signature{
		Params: []types.Param{{Name: "sum", Type: TypeDescriptorFor("int")}},
		Return: &types.Param{Name: "sum", Type: TypeDescriptorFor("int")},
	}

	src, err := RenderMethod(f.parser.FileSet(), c, "r", "Report")
	require.NoError(t, err)
	out := string(src)
	assert.Contains(t, out, "func (r *Report) extractedMethod(sum int) int {")
	assert.Contains(t, out, "for _, v := range r.items {")
	assert.Contains(t, out, "return sum")
}

func TestRenderMethod_FreeFunction(t *testing.T) {
	f := loadReport(t)
	c, err := f.synthesizer().Synthesize(15, 16, 17)
	require.NoError(t, err)
	c.Name = "decorate"

	src, err := RenderMethod(f.parser.FileSet(), c, "", "")
	require.NoError(t, err)
	assert.Contains(t, string(src), "func decorate() {")
}

func TestMethodDecl_DoesNotAliasBody(t *testing.T) {
	f := loadReport(t)
	c, err := f.synthesizer().Synthesize(11, 12, 17)
	require.NoError(t, err)
	c.Signature.Return = &types.Param{Name: "sum", Type: TypeDescriptorFor("int")}

	fn := MethodDecl(c, "r", "Report")
	assert.Len(t, fn.Body.List, 2)
	assert.Len(t, c.Statements, 1)
}

func TestAppendMethod(t *testing.T) {
	out := AppendMethod([]byte("package p\n\n\n"), []byte("func f() {}"))
	assert.Equal(t, "package p\n\nfunc f() {}\n", string(out))
}
