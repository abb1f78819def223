// Package logging provides structured logging for Dwell Core.
//
// It wraps the standard library log/slog with configuration-driven setup:
// JSON or text output, level filtering, and default fields (service name,
// version) attached to every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("tracker started", "source_id", id)
//
//	trackerLog := log.With("component", "tracking")
//	trackerLog.Warn("persist failed", "error", err)
//
// Before configuration is loaded, use logging.Default() which logs JSON
// to stdout at info level.
package logging
