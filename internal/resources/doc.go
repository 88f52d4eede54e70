// Package resources provides MCP resources for exposing the availability sheet.
// Resources are read-only data sources that MCP clients can fetch as context,
// here the member list and the upcoming schedule.
package resources
