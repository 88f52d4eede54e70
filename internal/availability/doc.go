// Package availability runs the operations shared by the web app, the MCP
// tools and the CLI: listing members, reading the schedule, and turning a
// natural-language statement into marker writes.
package availability
