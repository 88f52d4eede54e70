package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/parser"
	"github.com/teemow/bandavail/internal/schedule"
)

type fakeSheet struct {
	grid      schedule.Grid
	header    []string
	gridErr   error
	headerErr error
	applyErr  error

	applied     [][]schedule.CellUpdate
	gridFetches int
}

func (f *fakeSheet) FetchGrid(context.Context) (schedule.Grid, error) {
	f.gridFetches++
	return f.grid, f.gridErr
}

func (f *fakeSheet) FetchHeader(context.Context) ([]string, error) {
	return f.header, f.headerErr
}

func (f *fakeSheet) FetchSchedule(context.Context) (schedule.Grid, error) {
	return f.grid, f.gridErr
}

func (f *fakeSheet) ApplyUpdates(_ context.Context, updates []schedule.CellUpdate) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, updates)
	return nil
}

type fakeParser struct {
	result *parser.Result
	err    error

	gotText  string
	gotToday time.Time
}

func (f *fakeParser) Parse(_ context.Context, text string, today time.Time) (*parser.Result, error) {
	f.gotText = text
	f.gotToday = today
	return f.result, f.err
}

func testGrid() schedule.Grid {
	return schedule.Grid{
		{"Date", "Alice", "Bob"},
		{"2025-05-05", "", ""},
		{"2025-05-12", "", ""},
	}
}

func fixedClock() time.Time {
	return time.Date(2025, time.May, 1, 23, 30, 0, 0, time.UTC)
}

func TestUpdateAvailability(t *testing.T) {
	sheet := &fakeSheet{grid: testGrid()}
	p := &fakeParser{result: &parser.Result{
		Dates:  []string{"2025-05-05", "2025-05-99"},
		Status: schedule.StatusAvailable,
	}}
	svc := NewService(p, WithClock(fixedClock))

	result, err := svc.UpdateAvailability(context.Background(), sheet, "Alice", "I'm free May 5 and May 99")
	require.NoError(t, err)

	assert.Equal(t, "Updated 1 date(s) successfully. Dates not found in sheet: 2025-05-99", result.Message)
	assert.Equal(t, []string{"2025-05-05", "2025-05-99"}, result.Dates)
	assert.Equal(t, schedule.StatusAvailable, result.Status)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, []string{"2025-05-99"}, result.DatesNotFound)

	require.Len(t, sheet.applied, 1)
	assert.Equal(t, []schedule.CellUpdate{{Row: 1, Col: 1, Value: "✓"}}, sheet.applied[0])
	assert.Equal(t, "I'm free May 5 and May 99", p.gotText)
}

func TestUpdateAvailabilityUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	p := &fakeParser{result: &parser.Result{Dates: []string{}, Status: schedule.StatusAvailable}}
	svc := NewService(p, WithClock(fixedClock), WithLocation(loc))

	_, err = svc.UpdateAvailability(context.Background(), &fakeSheet{grid: testGrid()}, "Bob", "free")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-02", p.gotToday.Format(time.DateOnly))
}

func TestUpdateAvailabilityNothingMatched(t *testing.T) {
	sheet := &fakeSheet{grid: testGrid()}
	p := &fakeParser{result: &parser.Result{Dates: []string{}, Status: schedule.StatusUnavailable}}

	result, err := NewService(p).UpdateAvailability(context.Background(), sheet, "Bob", "never mind")
	require.NoError(t, err)
	assert.Equal(t, "Updated 0 date(s) successfully", result.Message)
	assert.NotNil(t, result.DatesNotFound)
	assert.Empty(t, result.DatesNotFound)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"dates_not_found":[]`)
}

func TestUpdateAvailabilityErrors(t *testing.T) {
	okParser := func() *fakeParser {
		return &fakeParser{result: &parser.Result{Dates: []string{"2025-05-05"}, Status: schedule.StatusAvailable}}
	}

	tests := []struct {
		name      string
		member    string
		text      string
		sheet     *fakeSheet
		parser    Parser
		wantKind  apperr.Kind
		wantIs    error
		wantFetch bool
	}{
		{
			name:     "missing member",
			text:     "free",
			sheet:    &fakeSheet{grid: testGrid()},
			parser:   okParser(),
			wantIs:   ErrMissingFields,
			wantKind: apperr.KindInvalidInput,
		},
		{
			name:      "blank member is looked up",
			member:    "  ",
			text:      "free",
			sheet:     &fakeSheet{grid: testGrid()},
			parser:    okParser(),
			wantKind:  apperr.KindMemberNotFound,
			wantFetch: true,
		},
		{
			name:     "missing text",
			member:   "Alice",
			sheet:    &fakeSheet{grid: testGrid()},
			parser:   okParser(),
			wantKind: apperr.KindInvalidInput,
		},
		{
			name:     "no parser",
			member:   "Alice",
			text:     "free",
			sheet:    &fakeSheet{grid: testGrid()},
			wantIs:   ErrParserUnavailable,
			wantKind: apperr.KindInternal,
		},
		{
			name:     "parse failure",
			member:   "Alice",
			text:     "free",
			sheet:    &fakeSheet{grid: testGrid()},
			parser:   &fakeParser{err: apperr.New(apperr.KindParse, "bad output")},
			wantKind: apperr.KindParse,
		},
		{
			name:      "unknown member",
			member:    "Carol",
			text:      "free",
			sheet:     &fakeSheet{grid: testGrid()},
			parser:    okParser(),
			wantKind:  apperr.KindMemberNotFound,
			wantFetch: true,
		},
		{
			name:      "empty sheet",
			member:    "Alice",
			text:      "free",
			sheet:     &fakeSheet{gridErr: schedule.ErrEmptySheet},
			parser:    okParser(),
			wantIs:    schedule.ErrEmptySheet,
			wantKind:  apperr.KindEmptySheet,
			wantFetch: true,
		},
		{
			name:      "write failure",
			member:    "Alice",
			text:      "free",
			sheet:     &fakeSheet{grid: testGrid(), applyErr: errors.New("quota")},
			parser:    okParser(),
			wantKind:  apperr.KindInternal,
			wantFetch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.parser)
			_, err := svc.UpdateAvailability(context.Background(), tt.sheet, tt.member, tt.text)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Equal(t, tt.wantFetch, tt.sheet.gridFetches > 0)
			assert.Empty(t, tt.sheet.applied)
		})
	}
}

func TestUpdateAvailabilityMemberNotFoundCarriesMembers(t *testing.T) {
	p := &fakeParser{result: &parser.Result{Dates: []string{"2025-05-05"}, Status: schedule.StatusAvailable}}
	_, err := NewService(p).UpdateAvailability(context.Background(), &fakeSheet{grid: testGrid()}, "Carol", "free")

	var notFound *schedule.MemberNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"Alice", "Bob"}, notFound.Members)
}

func TestUpdateAvailabilityAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	audit := instrumentation.NewAuditLogger(logger)

	p := &fakeParser{result: &parser.Result{Dates: []string{"2025-05-12"}, Status: schedule.StatusUnavailable}}
	svc := NewService(p, WithAuditLogger(audit), WithLogger(slog.New(slog.DiscardHandler)))

	ctx := ContextWithSource(context.Background(), instrumentation.SourceMCP)
	_, err := svc.UpdateAvailability(ctx, &fakeSheet{grid: testGrid()}, "Bob", "can't do the 12th")
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "availability_changed", entry["msg"])
	assert.Equal(t, "mcp", entry["source"])
	assert.Equal(t, "Bob", entry["member"])
	assert.Equal(t, "unavailable", entry["availability"])
	assert.EqualValues(t, 1, entry["cells_written"])
	assert.NotContains(t, buf.String(), "can't do the 12th")
}

func TestMembers(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   []string
	}{
		{name: "members", header: []string{"Date", "Alice", "Bob"}, want: []string{"Alice", "Bob"}},
		{name: "label only", header: []string{"Date"}, want: []string{}},
		{name: "empty row", header: []string{}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewService(nil).Members(context.Background(), &fakeSheet{header: tt.header})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NewService(nil).Members(context.Background(), &fakeSheet{headerErr: apperr.ErrNotAuthenticated})
	assert.True(t, apperr.Is(err, apperr.KindNotAuthenticated))
}

func TestSchedule(t *testing.T) {
	grid, err := NewService(nil).Schedule(context.Background(), &fakeSheet{grid: testGrid()})
	require.NoError(t, err)
	assert.Equal(t, testGrid(), grid)

	_, err = NewService(nil).Schedule(context.Background(), &fakeSheet{gridErr: schedule.ErrEmptySheet})
	assert.ErrorIs(t, err, schedule.ErrEmptySheet)
}

func TestCanUpdate(t *testing.T) {
	assert.False(t, NewService(nil).CanUpdate())
	assert.True(t, NewService(&fakeParser{}).CanUpdate())
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "Updated 2 date(s) successfully", FormatMessage(2, nil))
	assert.Equal(t, "Updated 0 date(s) successfully. Dates not found in sheet: a, b", FormatMessage(0, []string{"a", "b"}))
}

func TestSourceFromContext(t *testing.T) {
	assert.Equal(t, "unknown", SourceFromContext(context.Background()))
	assert.Equal(t, "web", SourceFromContext(ContextWithSource(context.Background(), "web")))
}
