// Package availability_tools provides MCP tools for reading and updating the
// band availability sheet.
//
// # Available Tools
//
//   - availability_list_members: List the member names from the header row
//   - availability_view_schedule: Show the upcoming dates and every member's marker
//   - availability_update: Parse a free-text availability statement for one
//     member and write the markers into the sheet (not registered in read-only mode)
//
// # Authentication
//
// Tools use the token file written by `bandavail login` or by the
// google_save_auth_code tool. If no token exists, tools return an error
// telling the user how to authenticate.
package availability_tools
