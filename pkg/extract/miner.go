package extract

import (
	"sort"

	"github.com/mamaar/extractor/pkg/types"
)

// Mine slides windows of every size over the table and returns each run of
// consecutive table lines whose symbol sets share at least one symbol. The
// result holds no duplicates and is ordered by first line, then last line.
func Mine(table *types.LineSymbols) []types.Opportunity {
	seen := make(map[string]bool)
	var out []types.Opportunity
	for step := 1; step < table.Len(); step++ {
		for _, o := range MineStep(table, step) {
			if seen[o.Key()] {
				continue
			}
			seen[o.Key()] = true
			out = append(out, o)
		}
	}
	SortOpportunities(out)
	return out
}

// MineStep returns the opportunities spanning exactly step+1 consecutive
// table lines.
func MineStep(table *types.LineSymbols, step int) []types.Opportunity {
	lines := table.Lines()
	var out []types.Opportunity
	for left := 0; left+step < len(lines); left++ {
		window := lines[left : left+step+1]
		if len(window) < 2 || len(table.Shared(window)) == 0 {
			continue
		}
		o := make(types.Opportunity, len(window))
		copy(o, window)
		out = append(out, o)
	}
	return out
}

// SortOpportunities orders by first line, then last line.
func SortOpportunities(ops []types.Opportunity) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Start() != ops[j].Start() {
			return ops[i].Start() < ops[j].Start()
		}
		return ops[i].End() < ops[j].End()
	})
}

// Interval is an inclusive range of source lines.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// MergedIntervals is a coarse view of the table: for every symbol, the runs
// of lines where consecutive occurrences are at most step lines apart and the
// run spans at least step lines; the runs of all symbols are then merged
// into disjoint intervals.
func MergedIntervals(table *types.LineSymbols, step int) []Interval {
	bySymbol := make(map[types.Symbol][]int)
	for _, line := range table.Lines() {
		for sym := range table.Symbols(line) {
			bySymbol[sym] = append(bySymbol[sym], line)
		}
	}

	var all []Interval
	for _, lines := range bySymbol {
		all = append(all, symbolIntervals(lines, step)...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End < all[j].End
	})

	merged := []Interval{all[0]}
	for _, in := range all[1:] {
		last := &merged[len(merged)-1]
		if last.End < in.Start {
			merged = append(merged, in)
			continue
		}
		last.End = max(last.End, in.End)
	}
	return merged
}

func symbolIntervals(lines []int, step int) []Interval {
	var out []Interval
	var cur *Interval
	for _, l := range lines {
		if cur == nil || cur.End < l-step {
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &Interval{Start: l, End: l}
			continue
		}
		cur.End = l
	}
	if cur != nil {
		out = append(out, *cur)
	}

	kept := out[:0]
	for _, in := range out {
		if in.End-in.Start >= step {
			kept = append(kept, in)
		}
	}
	return kept
}
