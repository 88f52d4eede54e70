package availability_tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/parser"
	"github.com/teemow/bandavail/internal/schedule"
)

type fakeSheet struct {
	grid    schedule.Grid
	applied []schedule.CellUpdate
}

func (f *fakeSheet) FetchGrid(context.Context) (schedule.Grid, error) {
	return f.grid, nil
}

func (f *fakeSheet) FetchHeader(context.Context) ([]string, error) {
	if len(f.grid) == 0 {
		return nil, nil
	}
	return f.grid[0], nil
}

func (f *fakeSheet) FetchSchedule(context.Context) (schedule.Grid, error) {
	if len(f.grid) == 0 {
		return nil, apperr.New(apperr.KindEmptySheet, "sheet is empty")
	}
	return f.grid, nil
}

func (f *fakeSheet) ApplyUpdates(_ context.Context, updates []schedule.CellUpdate) error {
	f.applied = append(f.applied, updates...)
	return nil
}

type fakeParser struct {
	result *parser.Result
}

func (f *fakeParser) Parse(context.Context, string, time.Time) (*parser.Result, error) {
	return f.result, nil
}

func newDeps(sheet *fakeSheet, sheetErr error) Deps {
	p := &fakeParser{result: &parser.Result{
		Dates:  []string{"2025-05-05", "2025-06-01"},
		Status: schedule.StatusUnavailable,
	}}
	return Deps{
		Service: availability.NewService(p),
		Sheet: func(context.Context) (availability.SheetClient, error) {
			if sheetErr != nil {
				return nil, sheetErr
			}
			return sheet, nil
		},
	}
}

func testGrid() schedule.Grid {
	return schedule.Grid{
		{"Date", "Alice", "Bob"},
		{"2025-05-05", "", "✓"},
		{"2025-05-12", "", ""},
	}
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestRegisterAvailabilityTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(false))

	assert.Error(t, RegisterAvailabilityTools(s, Deps{}, false))
	assert.NoError(t, RegisterAvailabilityTools(s, newDeps(&fakeSheet{grid: testGrid()}, nil), true))
	assert.NoError(t, RegisterAvailabilityTools(s, newDeps(&fakeSheet{grid: testGrid()}, nil), false))
}

func TestListMembers(t *testing.T) {
	result, err := handleListMembers(context.Background(), request(nil), newDeps(&fakeSheet{grid: testGrid()}, nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body struct {
		Members []string `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, []string{"Alice", "Bob"}, body.Members)
}

func TestViewSchedule(t *testing.T) {
	result, err := handleViewSchedule(context.Background(), request(nil), newDeps(&fakeSheet{grid: testGrid()}, nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body struct {
		Schedule schedule.Grid `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, testGrid(), body.Schedule)

	result, err = handleViewSchedule(context.Background(), request(nil), newDeps(&fakeSheet{}, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "sheet is empty")
}

func TestUpdate(t *testing.T) {
	sheet := &fakeSheet{grid: testGrid()}
	args := map[string]interface{}{
		"memberName":       "Alice",
		"availabilityText": "I can't make May 5th or June 1st",
	}

	result, err := handleUpdate(context.Background(), request(args), newDeps(sheet, nil))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var body availability.UpdateResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, 1, body.UpdatedCount)
	assert.Equal(t, []string{"2025-06-01"}, body.DatesNotFound)
	assert.Equal(t, "Updated 1 date(s) successfully. Dates not found in sheet: 2025-06-01", body.Message)
	assert.Equal(t, []schedule.CellUpdate{{Row: 1, Col: 1, Value: schedule.MarkerUnavailable}}, sheet.applied)
}

func TestUpdateErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		sheetErr error
		want     string
	}{
		{
			name: "missing text",
			args: map[string]interface{}{"memberName": "Alice"},
			want: "memberName and availabilityText are required",
		},
		{
			name:     "not authenticated",
			args:     map[string]interface{}{"memberName": "Alice", "availabilityText": "free"},
			sheetErr: apperr.ErrNotAuthenticated,
			want:     "not authenticated: run `bandavail login`",
		},
		{
			name: "unknown member",
			args: map[string]interface{}{"memberName": "Carol", "availabilityText": "free"},
			want: `Member "Carol" not found. Valid members: Alice, Bob`,
		},
		{
			name:     "sheet failure",
			args:     map[string]interface{}{"memberName": "Alice", "availabilityText": "free"},
			sheetErr: errors.New("boom"),
			want:     "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := &fakeSheet{grid: testGrid()}
			result, err := handleUpdate(context.Background(), request(tt.args), newDeps(sheet, tt.sheetErr))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
			assert.Empty(t, sheet.applied)
		})
	}
}
