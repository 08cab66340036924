// Package mcp exposes the opportunity miner as Model Context Protocol tools.
package mcp

import mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

// RegisterAllTools wires every extractor tool into the MCP server.
func RegisterAllTools(s *mcpsdk.Server, state *MCPServer) {
	registerMiningTools(s, state)
}
