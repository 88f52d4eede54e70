// Package google provides OAuth2 client configuration and token storage for
// the Google Sheets API.
//
// The web application keeps tokens in its session cookie. The CLI and the MCP
// server keep a single token in a JSON file under the user cache directory;
// FileTokenStore reads and writes it, and TokenSource persists refreshed
// tokens back to the file.
package google
