// Package logging provides structured logging for margin.
//
// It wraps log/slog with a JSON handler and adds child loggers that carry
// persistent attributes (component, resource key) so that every line emitted
// by the note store, the keyed lock registry, and the storage backends can be
// filtered after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(dir, logging.LevelInfo, logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	storeLog := logger.WithComponent("notes")
//	storeLog.WithKey("file:///a.go").Debug("note saved", "note_id", id)
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"note saved","component":"notes","key":"file:///a.go","note_id":"..."}
//
// # Rotation
//
// [NewLoggerWithRotation] writes through a [RotatingWriter], which rotates
// margin.log once it exceeds MaxSizeMB. Backups are named margin.log.1
// (newest) through margin.log.N, optionally gzip compressed.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] to capture it:
//
//	var buf bytes.Buffer
//	logger := logging.NewWriterLogger(&buf, logging.LevelDebug)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
