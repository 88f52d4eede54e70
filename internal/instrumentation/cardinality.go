package instrumentation

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// HTTP handlers must label requests with the matched route pattern
// ("/api/members"), never with the raw URL path, which is unbounded.

// PathUnmatched is the label used for requests that matched no route.
const PathUnmatched = "unmatched"

// PathLabel returns the label value for a route pattern.
//
// Example:
//
//	PathLabel("/api/members")  // "/api/members"
//	PathLabel("")              // "unmatched"
func PathLabel(routePattern string) string {
	if routePattern == "" {
		return PathUnmatched
	}
	return routePattern
}

// Operation types for Google Sheets API metrics and spans.
// Status, OAuth, and Service constants are defined in config.go.
const (
	OperationGetSpreadsheet = "get_spreadsheet"
	OperationGetValues      = "get_values"
	OperationBatchUpdate    = "batch_update"
)
