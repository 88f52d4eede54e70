package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/bandavail/internal/availability"
)

// Resource URIs.
const (
	MembersURI  = "bandavail://members"
	ScheduleURI = "bandavail://schedule"
)

// SheetProvider opens the schedule sheet for the locally stored credential.
type SheetProvider func(ctx context.Context) (availability.SheetClient, error)

// RegisterScheduleResources registers the member list and schedule resources
func RegisterScheduleResources(s *mcpserver.MCPServer, service *availability.Service, sheet SheetProvider) error {
	if service == nil || sheet == nil {
		return fmt.Errorf("schedule resources need a service and a sheet provider")
	}

	membersResource := mcp.NewResource(
		MembersURI,
		"Band Members",
		mcp.WithResourceDescription("Member names from the header row of the availability sheet"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(membersResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMembers(ctx, request, service, sheet)
	})

	scheduleResource := mcp.NewResource(
		ScheduleURI,
		"Band Schedule",
		mcp.WithResourceDescription("Upcoming dates with every member's availability marker (✓ available, ✗ unavailable)"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(scheduleResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSchedule(ctx, request, service, sheet)
	})

	return nil
}

// handleMembers returns the member names
func handleMembers(ctx context.Context, request mcp.ReadResourceRequest, service *availability.Service, sheet SheetProvider) ([]mcp.ResourceContents, error) {
	client, err := sheet(ctx)
	if err != nil {
		return nil, err
	}

	members, err := service.Members(ctx, client)
	if err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, map[string]interface{}{"members": members})
}

// handleSchedule returns the schedule grid
func handleSchedule(ctx context.Context, request mcp.ReadResourceRequest, service *availability.Service, sheet SheetProvider) ([]mcp.ResourceContents, error) {
	client, err := sheet(ctx)
	if err != nil {
		return nil, err
	}

	grid, err := service.Schedule(ctx, client)
	if err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, map[string]interface{}{"schedule": grid})
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
