package availability_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/bandavail/internal/apperr"
	"github.com/teemow/bandavail/internal/availability"
	"github.com/teemow/bandavail/internal/instrumentation"
	"github.com/teemow/bandavail/internal/logging"
	"github.com/teemow/bandavail/internal/schedule"
	"github.com/teemow/bandavail/internal/tools/common"
)

// SheetProvider opens the schedule sheet for the locally stored credential.
type SheetProvider func(ctx context.Context) (availability.SheetClient, error)

// Deps are the collaborators of the availability tools.
type Deps struct {
	Service     *availability.Service
	Sheet       SheetProvider
	Instruments common.Instruments
	Logger      *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// RegisterAvailabilityTools registers all availability tools with the MCP server
func RegisterAvailabilityTools(s *mcpserver.MCPServer, d Deps, readOnly bool) error {
	if d.Service == nil || d.Sheet == nil {
		return fmt.Errorf("availability tools need a service and a sheet provider")
	}
	listMembersTool := mcp.NewTool("availability_list_members",
		mcp.WithDescription("List the band members that have a column in the availability sheet"),
	)
	s.AddTool(listMembersTool, common.InstrumentedToolHandler("availability_list_members", d.Instruments,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMembers(ctx, request, d)
		}))

	viewScheduleTool := mcp.NewTool("availability_view_schedule",
		mcp.WithDescription("Show the upcoming dates of the availability sheet with every member's marker (✓ available, ✗ unavailable)"),
	)
	s.AddTool(viewScheduleTool, common.InstrumentedToolHandler("availability_view_schedule", d.Instruments,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleViewSchedule(ctx, request, d)
		}))

	// Writes are only available when not in read-only mode
	if !readOnly {
		updateTool := mcp.NewTool("availability_update",
			mcp.WithDescription("Update a member's availability from a natural-language statement such as 'I can't make it on Fridays in June'"),
			mcp.WithString(common.ArgMemberName,
				mcp.Required(),
				mcp.Description("The member name exactly as it appears in the sheet header"),
			),
			mcp.WithString("availabilityText",
				mcp.Required(),
				mcp.Description("Free-text availability statement"),
			),
		)
		s.AddTool(updateTool, common.InstrumentedToolHandler("availability_update", d.Instruments,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleUpdate(ctx, request, d)
			}))
	}

	return nil
}

func handleListMembers(ctx context.Context, _ mcp.CallToolRequest, d Deps) (*mcp.CallToolResult, error) {
	sheet, err := d.Sheet(ctx)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	members, err := d.Service.Members(ctx, sheet)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	return jsonResult(map[string]any{"members": members})
}

func handleViewSchedule(ctx context.Context, _ mcp.CallToolRequest, d Deps) (*mcp.CallToolResult, error) {
	sheet, err := d.Sheet(ctx)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	grid, err := d.Service.Schedule(ctx, sheet)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	return jsonResult(map[string]any{"schedule": grid})
}

func handleUpdate(ctx context.Context, request mcp.CallToolRequest, d Deps) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	member := common.GetMemberFromArgs(args)
	text := common.GetStringArg(args, "availabilityText")
	if member == "" || text == "" {
		return mcp.NewToolResultError("memberName and availabilityText are required"), nil
	}

	sheet, err := d.Sheet(ctx)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	ctx = availability.ContextWithSource(ctx, instrumentation.SourceMCP)
	result, err := d.Service.UpdateAvailability(ctx, sheet, member, text)
	if err != nil {
		return toolError(ctx, d.logger(), err), nil
	}

	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError turns err into a tool error result the assistant can act on.
func toolError(ctx context.Context, logger *slog.Logger, err error) *mcp.CallToolResult {
	logger.DebugContext(ctx, "tool call failed", logging.Err(err))

	var notFound *schedule.MemberNotFoundError
	switch {
	case apperr.Is(err, apperr.KindNotAuthenticated):
		return mcp.NewToolResultError("not authenticated: run `bandavail login` or use the google_get_auth_url tool")
	case errors.As(err, &notFound):
		return mcp.NewToolResultError(fmt.Sprintf("Member %q not found. Valid members: %s",
			notFound.Member, strings.Join(notFound.Members, ", ")))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
