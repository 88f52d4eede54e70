package schedule

import "github.com/teemow/bandavail/internal/apperr"

// Status is the availability reported for every date of one statement.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
)

// Markers written into member cells.
const (
	MarkerAvailable   = "✓"
	MarkerUnavailable = "✗"
)

// ParseStatus validates a status literal.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAvailable, StatusUnavailable:
		return Status(s), nil
	default:
		return "", apperr.Newf(apperr.KindParse, "invalid status %q: must be %q or %q", s, StatusAvailable, StatusUnavailable)
	}
}

// Marker returns the cell marker for the status.
func (s Status) Marker() string {
	if s == StatusAvailable {
		return MarkerAvailable
	}
	return MarkerUnavailable
}

// Grid is the cell matrix of the schedule sheet. Row 0 is the header row:
// a label followed by member names. Every following row starts with a
// YYYY-MM-DD date. Rows may be shorter than the header.
type Grid [][]string

// Cell returns the value at (row, col), or "" outside the grid.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// CellUpdate is a single marker write in grid coordinates (0-based, row 0 is
// the header).
type CellUpdate struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}
