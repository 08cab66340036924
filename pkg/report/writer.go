package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/types"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Writer encodes reports.
type Writer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewWriter returns a writer for out. Color only affects the text format.
func NewWriter(out io.Writer, format Format, useColor bool) *Writer {
	return &Writer{out: out, format: format, color: useColor}
}

// Write encodes r.
func (w *Writer) Write(r *Report) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return w.text(r)
	}
}

func (w *Writer) paint(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if w.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (w *Writer) text(r *Report) error {
	bold := w.paint(color.Bold)
	good := w.paint(color.FgGreen)
	bad := w.paint(color.FgRed)
	warn := w.paint(color.FgYellow)

	fmt.Fprintf(w.out, "%s %s\n", bold.Sprint("Extract-method opportunities for"), r.Unit)
	fmt.Fprintf(w.out, "file: %s  run: %s\n", r.File, r.RunID)
	fmt.Fprintf(w.out, "table lines: %d  opportunities: %d  synthesized: %d  kept: %d\n",
		r.Lines, r.Opportunities, r.Synthesized, len(r.Candidates))
	if len(r.Dropped) > 0 {
		reasons := make([]string, 0, len(r.Dropped))
		for reason, n := range r.Dropped {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w.out, "dropped: %s\n", strings.Join(reasons, " "))
	}
	fmt.Fprintln(w.out)

	if len(r.Candidates) == 0 {
		fmt.Fprintln(w.out, "No extractable opportunities found.")
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Lines", "Name", "Benefit", "Signature", "Placement", "Improvement"})
	for _, e := range r.Candidates {
		placement, improvement := "-", "-"
		if p := e.Placement; p != nil {
			placement = p.Target
			if p.Local {
				placement += " (local)"
			}
			improvement = fmt.Sprintf("%+.2f", p.Improvement)
			switch {
			case p.Improvement > 0:
				improvement = good.Sprint(improvement)
			case !p.Local:
				improvement = bad.Sprint(improvement)
			}
		}
		benefit := fmt.Sprintf("%+.3f", e.Benefit)
		if e.Benefit > 0 {
			benefit = good.Sprint(benefit)
		}
		tbl.AppendRow(table.Row{
			e.Rank,
			fmt.Sprintf("%d-%d", e.StartLine, e.EndLine),
			e.Name,
			benefit,
			signature(e),
			placement,
			improvement,
		})
	}
	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("Total: %d", len(r.Candidates))})
	fmt.Fprintln(w.out, tbl.Render())

	for _, a := range r.Ambiguities {
		fmt.Fprintf(w.out, "%s lines %d-%d could return any of %s\n",
			warn.Sprint("ambiguous:"), a.StartLine, a.EndLine, strings.Join(a.Candidates, ", "))
	}

	for _, e := range r.Candidates {
		fmt.Fprintf(w.out, "\n%s\n%s\n", bold.Sprintf("#%d %s (lines %d-%d)", e.Rank, e.Name, e.StartLine, e.EndLine), e.Method)
		if e.Diff != "" {
			for _, line := range strings.Split(strings.TrimRight(e.Diff, "\n"), "\n") {
				paint := good
				if strings.HasPrefix(line, "-") {
					paint = bad
				}
				fmt.Fprintln(w.out, paint.Sprint(line))
			}
		}
	}
	return nil
}

func signature(e Entry) string {
	sig := "(" + strings.Join(e.Params, ", ") + ")"
	if e.Return != "" {
		sig += " " + e.Return
	}
	return sig
}

// WriteTable prints the per-line symbol table, the mined opportunities and
// the merged symbol intervals of one unit.
func WriteTable(out io.Writer, unit string, t *types.LineSymbols, ops []types.Opportunity, step int) error {
	fmt.Fprintf(out, "Symbol table for %s (%d lines)\n", unit, t.Len())

	lines := table.NewWriter()
	lines.SetStyle(table.StyleLight)
	lines.AppendHeader(table.Row{"Line", "Symbols"})
	for _, l := range t.Lines() {
		lines.AppendRow(table.Row{l, strings.Join(t.Symbols(l).Sorted(), " ")})
	}
	fmt.Fprintln(out, lines.Render())

	mined := table.NewWriter()
	mined.SetStyle(table.StyleLight)
	mined.AppendHeader(table.Row{"Opportunity", "Shared"})
	for _, o := range ops {
		mined.AppendRow(table.Row{o.String(), strings.Join(t.Shared(o).Sorted(), " ")})
	}
	mined.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(ops))})
	fmt.Fprintln(out, mined.Render())

	if step > 0 {
		var parts []string
		for _, in := range extract.MergedIntervals(t, step) {
			parts = append(parts, fmt.Sprintf("%d-%d", in.Start, in.End))
		}
		fmt.Fprintf(out, "Merged intervals (step %d): %s\n", step, strings.Join(parts, ", "))
	}
	return nil
}
