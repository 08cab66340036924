package mcp

import (
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mamaar/extractor/pkg/report"
)

// AnalysisResult is the structured output of tools that only report a status.
type AnalysisResult struct {
	Description string `json:"description"`
	Data        any    `json:"data"`
}

// textResult is a convenience that marshals v to JSON and wraps it in a
// CallToolResult with a single TextContent block.
func textResult(v any) *mcpsdk.CallToolResult {
	b, _ := json.MarshalIndent(v, "", "  ")
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(b)},
		},
	}
}

// reportResult returns r with at most limit candidates. The cached report
// itself is never trimmed.
func reportResult(r *report.Report, limit int) *mcpsdk.CallToolResult {
	if limit > 0 && len(r.Candidates) > limit {
		trimmed := *r
		trimmed.Candidates = r.Candidates[:limit]
		r = &trimmed
	}
	return textResult(r)
}

// errResult returns a CallToolResult that signals an error.
func errResult(err error) *mcpsdk.CallToolResult {
	r := &mcpsdk.CallToolResult{}
	r.SetError(err)
	return r
}
