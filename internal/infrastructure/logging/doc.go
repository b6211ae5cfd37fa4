// Package logging provides structured logging for aha-recorder.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the poller and every recording
// backend.
//
// # Features
//
//   - JSON output for machine consumption
//   - Text output for terminals (default)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Error cause chains as structured attributes
//
// # Configuration
//
// Logging is configured via the Logging section:
//
//	[Logging]
//	level = "info"      # debug, info, warn, error
//	format = "text"     # json, text
//	output = "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg, version)
//	logger.Info("polling gateway", "url", base.URL)
//	logger.ErrorChain("tick failed", err, "backend", "Csv")
//
// # Security
//
// Never log gateway passwords, session ids or API tokens.
package logging
