package resources

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/schedule"
)

type fakeSheet struct {
	grid schedule.Grid
}

func (f *fakeSheet) FetchGrid(context.Context) (schedule.Grid, error) { return f.grid, nil }

func (f *fakeSheet) FetchHeader(context.Context) ([]string, error) { return f.grid[0], nil }

func (f *fakeSheet) FetchSchedule(context.Context) (schedule.Grid, error) { return f.grid, nil }

func (f *fakeSheet) ApplyUpdates(context.Context, []schedule.CellUpdate) error { return nil }

func provider(sheet availability.SheetClient, err error) SheetProvider {
	return func(context.Context) (availability.SheetClient, error) {
		return sheet, err
	}
}

func readRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: uri}}
}

func TestRegisterScheduleResources(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.Error(t, RegisterScheduleResources(s, nil, nil))
	assert.NoError(t, RegisterScheduleResources(s, availability.NewService(nil), provider(nil, nil)))
}

func TestScheduleResources(t *testing.T) {
	sheet := &fakeSheet{grid: schedule.Grid{
		{"Date", "Alice", "Bob"},
		{"2025-05-05", "✓", "✗"},
	}}
	service := availability.NewService(nil, availability.WithClock(time.Now))

	contents, err := handleMembers(context.Background(), readRequest(MembersURI), service, provider(sheet, nil))
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(*mcp.TextResourceContents)
	assert.Equal(t, MembersURI, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.JSONEq(t, `{"members": ["Alice", "Bob"]}`, text.Text)

	contents, err = handleSchedule(context.Background(), readRequest(ScheduleURI), service, provider(sheet, nil))
	require.NoError(t, err)
	text = contents[0].(*mcp.TextResourceContents)
	assert.JSONEq(t, `{"schedule": [["Date", "Alice", "Bob"], ["2025-05-05", "✓", "✗"]]}`, text.Text)
}

func TestScheduleResourcesNotAuthenticated(t *testing.T) {
	service := availability.NewService(nil)

	_, err := handleSchedule(context.Background(), readRequest(ScheduleURI), service, provider(nil, apperr.ErrNotAuthenticated))
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))
}
