// Package sheets reads and writes the band schedule through the Google Sheets
// v4 API.
//
// A Client is bound to one spreadsheet and one credential. It always works on
// the first sheet of the spreadsheet, reads fixed A1 ranges of it, and writes
// marker batches with a single values.batchUpdate call.
package sheets
