// Package logging builds the process slog.Logger and the attribute helpers
// bandavail logs with.
//
// The command layer builds one logger and passes it down:
//
//	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
//	logger.Info("availability updated", logging.Member(name), logging.Err(err))
//
// Spreadsheet ids are logged as short hashes. OAuth tokens and submitted
// availability text are never logged here.
package logging
