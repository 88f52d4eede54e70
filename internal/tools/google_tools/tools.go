package google_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/oauth2"

	"github.com/teemow/bandavail/internal/auth"
	"github.com/teemow/bandavail/internal/tools/common"
)

// TokenSaver persists the token obtained by google_save_auth_code.
type TokenSaver interface {
	Save(token *oauth2.Token) error
}

// Deps are the collaborators of the Google OAuth tools.
type Deps struct {
	Login       *auth.CodeLogin
	Tokens      TokenSaver
	Instruments common.Instruments
}

// RegisterGoogleTools registers all Google OAuth-related tools with the MCP server
func RegisterGoogleTools(s *mcpserver.MCPServer, d Deps) error {
	if d.Login == nil || d.Tokens == nil {
		return fmt.Errorf("google tools need a login flow and a token store")
	}

	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize access to the band schedule spreadsheet"),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", d.Instruments,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, d)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete authentication"),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth, or the full redirect URL"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", d.Instruments,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, d)
		}))

	return nil
}

func handleGetAuthURL(_ context.Context, _ mcp.CallToolRequest, d Deps) (*mcp.CallToolResult, error) {
	authURL := d.Login.AuthURL()

	result := fmt.Sprintf(`To authorize access to the band schedule:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Sheets
4. Copy the authorization code, or the whole URL you were redirected to

5. Call the google_save_auth_code tool with it to complete authentication`, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, d Deps) (*mcp.CallToolResult, error) {
	authCode := common.GetStringArg(request.GetArguments(), "authCode")
	if authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	creds, err := d.Login.Complete(ctx, authCode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete authorization: %v", err)), nil
	}
	if err := d.Tokens.Save(creds.Token); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save token: %v", err)), nil
	}

	return mcp.NewToolResultText("✅ Authorization successful! Google token saved. You can now use the availability tools."), nil
}
