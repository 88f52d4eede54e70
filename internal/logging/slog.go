package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every bandavail log line.
const (
	KeyOperation   = "operation"
	KeyMember      = "member"
	KeySpreadsheet = "spreadsheet"
	KeyStatus      = "status"
	KeyError       = "error"
	KeyRequestID   = "request_id"
	KeyDuration    = "duration"
)

// Output formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New builds a slog.Logger writing to w with the given level ("debug", "info",
// "warn", "error") and format ("text" or "json"). Empty values mean info and
// text.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q, must be one of: %s, %s", format, FormatText, FormatJSON)
}

// Operation names the sheet, parser or tool operation a line belongs to.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Member names the band member acted on.
func Member(name string) slog.Attr {
	return slog.String(KeyMember, name)
}

// Spreadsheet identifies a spreadsheet by ShortHash of its id.
func Spreadsheet(id string) slog.Attr {
	return slog.String(KeySpreadsheet, ShortHash(id))
}

// Status is "success" or "error".
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// RequestID is the chi request id.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Err returns the error attribute. A nil err yields an empty group, which
// handlers omit, so logging.Err(maybeNil) is always safe.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// ShortHash returns a stable 16 hex character digest of s, or "" for "".
func ShortHash(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
