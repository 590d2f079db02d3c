// Package logging builds the slog loggers used by timeliner.
//
// It owns the console and JSON handlers, level parsing, the tee handler that
// mirrors terminal output into the log file, and attribute helpers so that
// every component tags its records the same way. Context helpers carry the
// timeline, object, and correlation identifiers of an editing session into
// log records without threading them through every call.
//
// NewNop returns a logger that discards everything; library code that receives
// a nil logger falls back to it through NewComponentLogger.
package logging
