package extract

import (
	"math"
	"sort"

	"github.com/mamaar/extractor/pkg/types"
)

const (
	// sizeDifferenceThreshold bounds how far two sizes may differ, relative
	// to the smaller one, and still count as similar.
	sizeDifferenceThreshold = 0.2
	// overlapThreshold is the share of the larger candidate two candidates
	// must have in common to be significantly overlapping.
	overlapThreshold = 0.1
	// significantDifference is the benefit gap below which two grouped
	// candidates are interchangeable.
	significantDifference = 0.01
)

// Process drops every candidate that is a near duplicate (similar size and
// significantly overlapping) of a candidate with a clearly higher benefit.
// Of interchangeable near duplicates the one ordered first by (start, end)
// survives. The input slice is not modified.
func Process(candidates []*types.Candidate) []*types.Candidate {
	ordered := make([]*types.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartLine != ordered[j].StartLine {
			return ordered[i].StartLine < ordered[j].StartLine
		}
		return ordered[i].EndLine < ordered[j].EndLine
	})

	dominated := make([]bool, len(ordered))
	for i := range ordered {
		if dominated[i] {
			continue
		}
		for j := i + 1; j < len(ordered); j++ {
			a, b := ordered[i], ordered[j]
			if !similarSize(a, b) || !significantlyOverlapping(a, b) {
				continue
			}
			if b.Benefit()-a.Benefit() > significantDifference {
				dominated[i] = true
				break
			}
			dominated[j] = true
		}
	}

	var kept []*types.Candidate
	for i, c := range ordered {
		if !dominated[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

func similarSize(a, b *types.Candidate) bool {
	sa, sb := float64(a.Size()), float64(b.Size())
	return math.Abs(sa-sb) < math.Min(sa, sb)*sizeDifferenceThreshold
}

func significantlyOverlapping(a, b *types.Candidate) bool {
	intersection := min(a.EndLine, b.EndLine) - max(a.StartLine, b.StartLine)
	return float64(intersection) > overlapThreshold*math.Max(float64(a.Size()), float64(b.Size()))
}
