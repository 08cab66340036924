// Package app turns a configuration into mining runs. The CLI and the MCP
// server both go through Miner.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/mamaar/extractor/internal/config"
	"github.com/mamaar/extractor/pkg/analysis"
	"github.com/mamaar/extractor/pkg/evaluate"
	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/metrics"
	"github.com/mamaar/extractor/pkg/naming"
	"github.com/mamaar/extractor/pkg/report"
	"github.com/mamaar/extractor/pkg/types"
)

// Miner runs the extraction pipeline with the settings of one Config.
type Miner struct {
	cfg       *config.Config
	logger    *slog.Logger
	namer     naming.Namer
	evaluator extract.Evaluator
}

// Run is one loaded unit and, after Mine, its result.
type Run struct {
	Parser    *analysis.GoParser
	Workspace *types.Workspace
	Unit      *analysis.Unit
	Result    *extract.Result
}

// NewMiner builds the namer and evaluator cfg asks for. The evaluator is
// shared by every run so its before-move cache survives across passes.
func NewMiner(cfg *config.Config, logger *slog.Logger) (*Miner, error) {
	m := &Miner{cfg: cfg, logger: logger, namer: naming.Static{}}

	if cfg.Naming.Enabled {
		m.namer = naming.NewAnthropicNamer(naming.AnthropicConfig{
			APIKey:  cfg.Naming.APIKey,
			Model:   cfg.Naming.Model,
			BaseURL: cfg.Naming.BaseURL,
		})
	}

	if cfg.Evaluate.Enabled {
		workers := cfg.Workers
		if workers == 0 {
			workers = runtime.NumCPU()
		}
		ev, err := evaluate.New(metrics.NewCalculator(), logger,
			evaluate.WithWorkers(workers),
			evaluate.WithCrossClass(cfg.Evaluate.CrossClass),
			evaluate.WithScratchRoot(cfg.Evaluate.ScratchRoot),
			evaluate.WithCacheSize(cfg.Cache.Size),
		)
		if err != nil {
			return nil, err
		}
		m.evaluator = ev
	}
	return m, nil
}

// Config returns the configuration the miner was built with.
func (m *Miner) Config() *config.Config { return m.cfg }

// Load parses the package in dir and locates target in it. target is
// "Type.Method", a type name for the whole type, or a function name.
func (m *Miner) Load(dir, target string) (*Run, error) {
	parser, err := analysis.NewParser(m.logger, m.cfg.Exclude...)
	if err != nil {
		return nil, err
	}
	ws, pkg, err := parser.LoadPackage(dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	unit, err := ResolveUnit(pkg, target)
	if err != nil {
		return nil, err
	}
	return &Run{Parser: parser, Workspace: ws, Unit: unit}, nil
}

// Mine loads target and runs the whole pipeline on it.
func (m *Miner) Mine(ctx context.Context, dir, target string) (*Run, error) {
	run, err := m.Load(dir, target)
	if err != nil {
		return nil, err
	}

	opts := []extract.Option{
		extract.WithTolerance(m.cfg.Tolerance),
		extract.WithNamer(m.namer, m.cfg.Naming.Timeout),
		extract.WithLogger(m.logger),
	}
	if m.evaluator != nil {
		opts = append(opts, extract.WithEvaluator(m.evaluator))
	}

	res, err := extract.NewExtractor(run.Parser, opts...).Extract(ctx, run.Workspace, run.Unit)
	if err != nil {
		return nil, err
	}
	m.logger.Info("mined unit", "unit", res.Unit, "opportunities", res.Opportunities,
		"candidates", len(res.Candidates), "dropped", res.Dropped)
	run.Result = res
	return run, nil
}

// Table loads target and returns its symbol table with the raw
// opportunities mined from it.
func (m *Miner) Table(dir, target string) (*Run, *types.LineSymbols, []types.Opportunity, error) {
	run, err := m.Load(dir, target)
	if err != nil {
		return nil, nil, nil, err
	}
	table, err := analysis.BuildLineSymbols(run.Parser.FileSet(), run.Unit.Nodes()...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build symbol table for %s: %w", run.Unit, err)
	}
	return run, table, extract.Mine(table), nil
}

// Report renders a mined run with the configured limit and diff settings.
func (m *Miner) Report(run *Run) (*report.Report, error) {
	if run.Result == nil {
		return nil, fmt.Errorf("%s has not been mined", run.Unit)
	}
	opts := []report.Option{report.WithLimit(m.cfg.Output.Limit)}
	if m.cfg.Output.Diff {
		opts = append(opts, report.WithDiff(run.Unit.File.OriginalContent))
	}
	return report.New(run.Result, run.Parser.FileSet(), opts...)
}

// Filter rejects files matching the configured exclude globs.
func (m *Miner) Filter() (func(path string) bool, error) {
	parser, err := analysis.NewParser(m.logger, m.cfg.Exclude...)
	if err != nil {
		return nil, err
	}
	return func(path string) bool { return !parser.Excluded(path) }, nil
}

// ResolveUnit finds target in pkg. "Type.Method" names a method; a bare
// name is a type when pkg declares one, otherwise a function.
func ResolveUnit(pkg *types.Package, target string) (*analysis.Unit, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &types.RefactorError{
			Type:    types.InvalidOperation,
			Message: "a target is required: Type, Type.Method or Function",
		}
	}
	if typeName, method, ok := strings.Cut(target, "."); ok {
		return analysis.FindUnit(pkg, typeName, method)
	}
	if analysis.TypeFile(pkg, target) != nil {
		return analysis.FindUnit(pkg, target, "")
	}
	return analysis.FindUnit(pkg, "", target)
}
