// Package cmd implements the command-line interface for bandavail.
//
// This package provides the following commands:
//   - serve: Run the web application and its metrics server
//   - mcp: Run the MCP server over stdio for AI assistants
//   - login, logout: Manage the Google token used by the CLI and MCP server
//   - members, schedule, update: Read and update the availability sheet
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
package cmd
