// Package logging provides structured logging with per-module log level configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to the systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"v4l2":    "debug", // Per-module overrides
//			"hotplug": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("capture")
//	logger.Info("stream started", "device", "/dev/video0")
//
// Module-specific levels override the global level for that module only,
// and can be changed by re-running Initialize; loggers handed out earlier
// pick up the new levels.
//
// When running under systemd, entries can be filtered by structured
// fields:
//
//	journalctl -t livid MODULE=capture
package logging
