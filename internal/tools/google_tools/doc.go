// Package google_tools provides MCP tools for Google OAuth authentication.
//
// This package registers OAuth-related tools that allow AI assistants to:
//   - Get the OAuth authorization URL for the schedule spreadsheet
//   - Save the OAuth authorization code to complete authentication
//
// The OAuth flow:
//  1. Call google_get_auth_url to get the authorization URL
//  2. User visits the URL and authorizes access
//  3. User provides the authorization code, or the whole redirect URL
//  4. Call google_save_auth_code with it to save the token
//
// The saved token is the same file `bandavail login` writes, and is refreshed
// automatically as needed.
package google_tools
