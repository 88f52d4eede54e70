package schedule

import (
	"fmt"
	"strings"

	"github.com/teemow/bandavail/internal/apperr"
)

// ErrEmptySheet is returned when a grid has no rows at all.
var ErrEmptySheet = apperr.New(apperr.KindEmptySheet, "sheet is empty")

// MemberNotFoundError is returned when a member has no column in the header row.
type MemberNotFoundError struct {
	Member  string
	Members []string
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("member %q not found in sheet; valid members: %s", e.Member, strings.Join(e.Members, ", "))
}

// Kind implements the apperr kind contract.
func (e *MemberNotFoundError) Kind() apperr.Kind {
	return apperr.KindMemberNotFound
}

// Plan is the outcome of a reconciliation: the cells to write and the dates
// that have no row in the grid. Both slices are always non-nil.
type Plan struct {
	Updates   []CellUpdate
	Unmatched []string
}

// Members returns the member names in the header row, i.e. row 0 without the
// label column.
func Members(grid Grid) ([]string, error) {
	if len(grid) == 0 {
		return nil, ErrEmptySheet
	}
	header := grid[0]
	if len(header) <= 1 {
		return []string{}, nil
	}
	members := make([]string, len(header)-1)
	copy(members, header[1:])
	return members, nil
}

// Reconcile maps an availability statement for one member onto the grid.
//
// The member column is the first header cell equal to memberName. Each date
// resolves to the first row whose date cell equals it exactly; dates without a
// row are reported in Plan.Unmatched. Repeated dates resolve independently and
// yield repeated updates.
func Reconcile(grid Grid, memberName string, dates []string, status Status) (Plan, error) {
	if len(grid) == 0 {
		return Plan{}, ErrEmptySheet
	}

	col := grid.memberColumn(memberName)
	if col < 0 {
		members, _ := Members(grid)
		return Plan{}, &MemberNotFoundError{Member: memberName, Members: members}
	}

	marker := status.Marker()
	plan := Plan{
		Updates:   make([]CellUpdate, 0, len(dates)),
		Unmatched: []string{},
	}
	for _, date := range dates {
		row := grid.dateRow(date)
		if row < 0 {
			plan.Unmatched = append(plan.Unmatched, date)
			continue
		}
		plan.Updates = append(plan.Updates, CellUpdate{Row: row, Col: col, Value: marker})
	}
	return plan, nil
}

// memberColumn returns the index of the first header cell equal to name, or -1.
func (g Grid) memberColumn(name string) int {
	header := g[0]
	for i := 1; i < len(header); i++ {
		if header[i] == name {
			return i
		}
	}
	return -1
}

// dateRow returns the index of the first data row whose first cell equals date, or -1.
func (g Grid) dateRow(date string) int {
	for i := 1; i < len(g); i++ {
		if len(g[i]) > 0 && g[i][0] == date {
			return i
		}
	}
	return -1
}
