// Package metrics exposes the cohesion and complexity analyzers as plain
// per-type readings.
package metrics

import (
	"fmt"

	"github.com/mamaar/extractor/pkg/analyzers"
	"github.com/mamaar/extractor/pkg/analyzers/cohesion"
	"github.com/mamaar/extractor/pkg/analyzers/complexity"
	"github.com/mamaar/extractor/pkg/types"
)

// Calculator computes the metrics the miner and the evaluator rank by.
// Implementations must be safe for concurrent use.
type Calculator interface {
	// Cohesion returns the LCOM3 reading of typeName; lower is more cohesive.
	Cohesion(ws *types.Workspace, pkg *types.Package, typeName string) (float64, error)
	// Complexity returns cyclomatic complexity per method of typeName, keyed
	// Type.Method. An empty typeName measures plain functions.
	Complexity(ws *types.Workspace, pkg *types.Package, typeName string) (map[string]float64, error)
}

// AnalyzerCalculator runs the analyzers through the analyzer runner.
type AnalyzerCalculator struct{}

// NewCalculator returns the analyzer-backed calculator.
func NewCalculator() *AnalyzerCalculator { return &AnalyzerCalculator{} }

// Cohesion implements Calculator. A type the package does not declare has
// a reading of zero.
func (AnalyzerCalculator) Cohesion(ws *types.Workspace, pkg *types.Package, typeName string) (float64, error) {
	rr, err := analyzers.RunPackage(ws, cohesion.NewAnalyzer(cohesion.WithType(typeName)), pkg)
	if err != nil {
		return 0, fmt.Errorf("cohesion of %s: %w", typeName, err)
	}
	results, _ := rr.Result.([]*cohesion.Result)
	r, ok := cohesion.Lookup(results, typeName)
	if !ok {
		return 0, nil
	}
	return r.LCOM3, nil
}

// Complexity implements Calculator.
func (AnalyzerCalculator) Complexity(ws *types.Workspace, pkg *types.Package, typeName string) (map[string]float64, error) {
	a := complexity.NewAnalyzer(complexity.WithMinComplexity(0), complexity.WithReceiver(typeName))
	rr, err := analyzers.RunPackage(ws, a, pkg)
	if err != nil {
		return nil, fmt.Errorf("complexity of %s: %w", typeName, err)
	}
	results, _ := rr.Result.([]*complexity.Result)
	out := make(map[string]float64, len(results))
	for _, r := range results {
		if typeName == "" && r.Receiver != "" {
			continue
		}
		out[r.Key()] = float64(r.CyclomaticComplexity)
	}
	return out, nil
}

// Sum adds up every value of m.
func Sum(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}
