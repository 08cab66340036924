package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mamaar/extractor/pkg/extract"
)

// --- load_workspace ---

type LoadWorkspaceInput struct {
	Path string `json:"path" jsonschema:"directory of the Go package to mine"`
}

// --- find_extract_opportunities ---

type FindOpportunitiesInput struct {
	Target string `json:"target" jsonschema:"unit to mine: Type.Method, Type for every method of a type, or a function name"`
	Dir    string `json:"dir,omitempty" jsonschema:"package directory (absolute or relative to the loaded workspace)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"return at most this many candidates (0 for all)"`
}

// --- symbol_table ---

type SymbolTableInput struct {
	Target string `json:"target" jsonschema:"unit to inspect: Type.Method, Type or a function name"`
	Dir    string `json:"dir,omitempty" jsonschema:"package directory (absolute or relative to the loaded workspace)"`
	Step   int    `json:"step,omitempty" jsonschema:"line step for the merged symbol intervals (0 to skip them)"`
}

// TableLine is one row of the symbol table.
type TableLine struct {
	Line    int      `json:"line"`
	Symbols []string `json:"symbols"`
}

// SymbolTableResult is the output of symbol_table.
type SymbolTableResult struct {
	Unit          string             `json:"unit"`
	Lines         []TableLine        `json:"lines"`
	Opportunities [][]int            `json:"opportunities"`
	Intervals     []extract.Interval `json:"intervals,omitempty"`
}

func registerMiningTools(s *mcpsdk.Server, state *MCPServer) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "load_workspace",
		Description: "Set the package directory that later calls mine by default. Cached results are refreshed when its files change.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in LoadWorkspaceInput) (*mcpsdk.CallToolResult, any, error) {
		if err := state.LoadWorkspace(in.Path); err != nil {
			return errResult(err), nil, nil
		}
		return textResult(AnalysisResult{Description: "workspace loaded", Data: map[string]string{"path": in.Path}}), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "find_extract_opportunities",
		Description: "Mine a method, type or function for extract-method opportunities. Returns ranked candidates with inferred signatures and placements.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in FindOpportunitiesInput) (*mcpsdk.CallToolResult, any, error) {
		dir, err := state.dir(in.Dir)
		if err != nil {
			return errResult(err), nil, nil
		}
		r, err := state.Mine(ctx, dir, in.Target)
		if err != nil {
			return errResult(err), nil, nil
		}
		return reportResult(r, in.Limit), nil, nil
	})

	mcpsdk.AddTool(s, &mcpsdk.Tool{
		Name:        "symbol_table",
		Description: "Show the per-line symbol table of a unit and the raw opportunities mined from it.",
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest, in SymbolTableInput) (*mcpsdk.CallToolResult, any, error) {
		dir, err := state.dir(in.Dir)
		if err != nil {
			return errResult(err), nil, nil
		}
		run, table, ops, err := state.miner.Table(dir, in.Target)
		if err != nil {
			return errResult(err), nil, nil
		}

		out := SymbolTableResult{Unit: run.Unit.String(), Opportunities: make([][]int, len(ops))}
		for _, line := range table.Lines() {
			out.Lines = append(out.Lines, TableLine{Line: line, Symbols: table.Symbols(line).Sorted()})
		}
		for i, op := range ops {
			out.Opportunities[i] = op
		}
		if in.Step > 0 {
			out.Intervals = extract.MergedIntervals(table, in.Step)
		}
		return textResult(out), nil, nil
	})
}
