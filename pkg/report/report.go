// Package report turns mining results into JSON, YAML or text reports.
package report

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/types"
)

// Report is the serializable outcome of one mining run.
type Report struct {
	RunID         string         `json:"run_id" yaml:"run_id"`
	GeneratedAt   time.Time      `json:"generated_at" yaml:"generated_at"`
	Unit          string         `json:"unit" yaml:"unit"`
	File          string         `json:"file" yaml:"file"`
	Lines         int            `json:"table_lines" yaml:"table_lines"`
	Opportunities int            `json:"opportunities" yaml:"opportunities"`
	Synthesized   int            `json:"synthesized" yaml:"synthesized"`
	Dropped       map[string]int `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Candidates    []Entry        `json:"candidates" yaml:"candidates"`
	Ambiguities   []Ambiguity    `json:"ambiguities,omitempty" yaml:"ambiguities,omitempty"`
}

// Entry describes one ranked candidate.
type Entry struct {
	Rank      int     `json:"rank" yaml:"rank"`
	Name      string  `json:"name" yaml:"name"`
	StartLine int     `json:"start_line" yaml:"start_line"`
	EndLine   int     `json:"end_line" yaml:"end_line"`
	Lines     []int   `json:"lines" yaml:"lines"`
	Benefit   float64 `json:"benefit" yaml:"benefit"`

	OriginalCohesion    float64 `json:"original_cohesion" yaml:"original_cohesion"`
	ResidualCohesion    float64 `json:"residual_cohesion" yaml:"residual_cohesion"`
	OpportunityCohesion float64 `json:"opportunity_cohesion" yaml:"opportunity_cohesion"`

	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	Return string   `json:"return,omitempty" yaml:"return,omitempty"`

	Placement *Placement `json:"placement,omitempty" yaml:"placement,omitempty"`
	Method    string     `json:"method" yaml:"method"`
	Diff      string     `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// Placement is the evaluator's verdict for an entry.
type Placement struct {
	Target      string             `json:"target" yaml:"target"`
	Local       bool               `json:"local" yaml:"local"`
	Improvement float64            `json:"improvement" yaml:"improvement"`
	Before      map[string]float64 `json:"before,omitempty" yaml:"before,omitempty"`
	After       map[string]float64 `json:"after,omitempty" yaml:"after,omitempty"`
}

// Ambiguity records a range with more than one possible return value.
type Ambiguity struct {
	StartLine  int      `json:"start_line" yaml:"start_line"`
	EndLine    int      `json:"end_line" yaml:"end_line"`
	Candidates []string `json:"candidates" yaml:"candidates"`
}

type options struct {
	limit    int
	original []byte
	now      func() time.Time
}

// Option configures New.
type Option func(*options)

// WithLimit keeps only the best n candidates. Zero keeps all.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithDiff attaches to every entry a line diff between original, the
// content of the mined file, and the candidate's residual.
func WithDiff(original []byte) Option {
	return func(o *options) { o.original = original }
}

// New builds a report from res. fset must be the file set the candidates'
// statements were parsed into.
func New(res *extract.Result, fset *token.FileSet, opts ...Option) (*Report, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   o.now().UTC(),
		Unit:          res.Unit,
		File:          res.File,
		Opportunities: res.Opportunities,
		Synthesized:   res.Synthesized,
		Dropped:       res.Dropped,
		Candidates:    []Entry{},
	}
	if res.Table != nil {
		r.Lines = res.Table.Len()
	}

	candidates := res.Candidates
	if o.limit > 0 && len(candidates) > o.limit {
		candidates = candidates[:o.limit]
	}
	for i, c := range candidates {
		e, err := entry(fset, c, o.original)
		if err != nil {
			return nil, fmt.Errorf("report candidate %s: %w", c, err)
		}
		e.Rank = i + 1
		r.Candidates = append(r.Candidates, e)
	}

	for _, a := range res.Ambiguities {
		r.Ambiguities = append(r.Ambiguities, Ambiguity{
			StartLine:  a.StartLine,
			EndLine:    a.EndLine,
			Candidates: a.Candidates,
		})
	}
	return r, nil
}

func entry(fset *token.FileSet, c *types.Candidate, original []byte) (Entry, error) {
	e := Entry{
		Name:                c.Name,
		StartLine:           c.StartLine,
		EndLine:             c.EndLine,
		Lines:               c.Opportunity,
		Benefit:             c.Benefit(),
		OriginalCohesion:    c.OriginalMetric,
		ResidualCohesion:    c.ResidualMetric,
		OpportunityCohesion: c.OpportunityMetric,
	}
	for _, p := range c.Signature.Params {
		e.Params = append(e.Params, p.Name+" "+p.Type.String())
	}
	if c.Signature.Return != nil {
		e.Return = c.Signature.Return.Name + " " + c.Signature.Return.Type.String()
	}
	if p := c.Placement; p != nil {
		e.Placement = &Placement{
			Target:      p.TargetType,
			Local:       p.Local,
			Improvement: p.Improvement,
			Before:      p.Before,
			After:       p.After,
		}
	}

	if c.Method != nil {
		var buf bytes.Buffer
		if err := format.Node(&buf, fset, c.Method); err != nil {
			return e, err
		}
		e.Method = buf.String()
	}
	if original != nil {
		e.Diff = Diff(original, c.Residual)
	}
	return e, nil
}

// Diff renders a line diff from before to after. Removed lines start with
// "-", added lines with "+"; unchanged lines are omitted.
func Diff(before, after []byte) string {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(strings.TrimRight(line, "\n"))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
