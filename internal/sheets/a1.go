package sheets

import (
	"strconv"
	"strings"
)

// ColumnLetter converts a 0-based column index to A1 column letters
// (0 is A, 25 is Z, 26 is AA).
func ColumnLetter(col int) string {
	if col < 0 {
		return ""
	}
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// QuoteSheetTitle quotes a sheet title for use in an A1 range.
func QuoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// QualifiedRange prefixes an A1 range with the quoted sheet title.
func QualifiedRange(title, a1 string) string {
	return QuoteSheetTitle(title) + "!" + a1
}

// CellRange returns the A1 range of one grid cell (0-based row and column).
func CellRange(title string, row, col int) string {
	return QualifiedRange(title, ColumnLetter(col)+strconv.Itoa(row+1))
}
