package extract

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/mamaar/extractor/pkg/naming"
	"github.com/mamaar/extractor/pkg/types"
)

// DefaultTolerance is how many non-blank lines the formatted residual may
// differ from the patched text before the brace repair is considered broken.
const DefaultTolerance = 3

const (
	stmtWrapperHead = "package p\nfunc _() {\n"
	stmtWrapperTail = "\n}\n"
)

// Synthesizer turns line ranges of one source file into an extracted method
// body and the residual file with the range removed.
type Synthesizer struct {
	file      string
	lines     []string
	fset      *token.FileSet
	tolerance int
}

// NewSynthesizer prepares synthesis over src, the content of file. Parsed
// statements are registered in fset.
func NewSynthesizer(fset *token.FileSet, file string, src []byte, tolerance int) *Synthesizer {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return &Synthesizer{
		file:      file,
		lines:     strings.Split(string(src), "\n"),
		fset:      fset,
		tolerance: tolerance,
	}
}

// Synthesize builds a candidate for lines [start, end]. Continuations of a
// statement that starts inside the range may read up to maxLine, which
// extends the candidate's EndLine.
func (s *Synthesizer) Synthesize(start, end, maxLine int) (*types.Candidate, error) {
	if start < 1 || end < start || end > len(s.lines) {
		return nil, s.failure(start, "invalid line range %d-%d", start, end)
	}
	maxLine = min(maxLine, len(s.lines))

	stmts, newEnd, err := s.extract(start, end, maxLine)
	if err != nil {
		return nil, err
	}

	residual, err := s.residual(start, newEnd)
	if err != nil {
		return nil, err
	}

	c := &types.Candidate{
		StartLine:  start,
		EndLine:    newEnd,
		File:       s.file,
		Statements: stmts,
		Residual:   residual,
		Name:       naming.Placeholder,
	}
	c.Method = &ast.FuncDecl{
		Name: ast.NewIdent(naming.Placeholder),
		Type: &ast.FuncType{Params: &ast.FieldList{}},
		Body: c.Body(),
	}
	return c, nil
}

// extract reads the range one line at a time. A line that does not parse on
// its own is extended with following lines until it does; the cursor then
// continues after the consumed lines. Consumed lines that never parse may
// only hold braces, since the residual drops them too.
func (s *Synthesizer) extract(start, end, maxLine int) ([]ast.Stmt, int, error) {
	var chunks []string
	newEnd := end

	for cursor := start; cursor <= end && cursor <= maxLine; {
		text := s.line(cursor)
		if isBlankOrComment(text) {
			cursor++
			continue
		}

		next := cursor + 1
		ok := false
		if minDepth, _ := braceDepth(text); minDepth >= 0 {
			ok = parsesAsStatements(text)
			for !ok && next <= maxLine {
				text += "\n" + s.line(next)
				next++
				if minDepth, _ := braceDepth(text); minDepth < 0 {
					break
				}
				ok = parsesAsStatements(text)
			}
		}

		if ok {
			chunks = append(chunks, text)
			newEnd = max(newEnd, next-1)
		} else if !onlyBraces(text) {
			return nil, 0, s.failure(cursor, "lines %d-%d do not form a statement", cursor, next-1)
		}
		cursor = next
	}

	if len(chunks) == 0 {
		return nil, 0, s.failure(start, "no complete statement in lines %d-%d", start, end)
	}

	body := stmtWrapperHead + strings.Join(chunks, "\n") + stmtWrapperTail
	file, err := parser.ParseFile(s.fset, s.file+"#extracted", body, 0)
	if err != nil {
		return nil, 0, s.failure(start, "extracted statements do not parse: %v", err)
	}
	stmts := file.Decls[0].(*ast.FuncDecl).Body.List
	if len(stmts) == 0 {
		return nil, 0, s.failure(start, "no statement in lines %d-%d", start, end)
	}
	return stmts, newEnd, nil
}

// residual removes [start, end] from the file, closes or reopens whatever
// blocks the removed text left unbalanced, then reparses and formats.
func (s *Synthesizer) residual(start, end int) ([]byte, error) {
	removed := strings.Join(s.lines[start-1:end], "\n")
	minDepth, final := braceDepth(removed)
	front := -min(minDepth, 0)
	rear := final - min(minDepth, 0)

	var kept []string
	kept = append(kept, s.lines[:start-1]...)
	for range front {
		kept = append(kept, "}")
	}
	for range rear {
		kept = append(kept, "{")
	}
	kept = append(kept, s.lines[end:]...)
	text := strings.Join(kept, "\n")

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, s.file, text, parser.ParseComments)
	if err != nil {
		return nil, s.failure(start, "residual does not parse: %v", err)
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, s.failure(start, "residual cannot be formatted: %v", err)
	}

	expected := countNonBlank(text)
	actual := countNonBlank(buf.String())
	if drift := actual - expected; drift > s.tolerance || -drift > s.tolerance {
		return nil, s.failure(start, "residual drifted %d lines after repair", drift)
	}
	return buf.Bytes(), nil
}

func (s *Synthesizer) line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}

func (s *Synthesizer) failure(line int, format string, args ...any) error {
	return &types.RefactorError{
		Type:    types.SynthesisFailure,
		Message: fmt.Sprintf(format, args...),
		File:    s.file,
		Line:    line,
	}
}

func parsesAsStatements(text string) bool {
	file, err := parser.ParseFile(token.NewFileSet(), "", stmtWrapperHead+text+stmtWrapperTail, 0)
	if err != nil || len(file.Decls) != 1 {
		return false
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	return ok && fn.Body != nil && len(fn.Body.List) > 0
}

// braceDepth scans src as Go tokens and returns the lowest and the final
// brace nesting depth. Braces inside strings and comments do not count.
func braceDepth(src string) (minDepth, final int) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var sc scanner.Scanner
	sc.Init(file, []byte(src), func(token.Position, string) {}, 0)
	depth := 0
	for {
		_, tok, _ := sc.Scan()
		switch tok {
		case token.EOF:
			return minDepth, depth
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
			minDepth = min(minDepth, depth)
		}
	}
}

// onlyBraces reports whether src holds nothing but braces and else keywords.
func onlyBraces(src string) bool {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var sc scanner.Scanner
	sc.Init(file, []byte(src), func(token.Position, string) {}, 0)
	for {
		_, tok, _ := sc.Scan()
		switch tok {
		case token.EOF:
			return true
		case token.LBRACE, token.RBRACE, token.SEMICOLON, token.ELSE:
		default:
			return false
		}
	}
}

func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "//")
}

func countNonBlank(text string) int {
	n := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
