package google

import sheets "google.golang.org/api/sheets/v4"

// DefaultOAuthScopes are the Google OAuth scopes bandavail requests.
// Reading members and writing markers both need full spreadsheet access.
var DefaultOAuthScopes = []string{
	sheets.SpreadsheetsScope,
}
