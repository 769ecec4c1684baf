// Package logger provides structured logging for snapetl.
//
//   - logger.go: slog-backed Logger and the process-wide default
//   - context.go: logger and run id propagation through context.Context
//   - redact.go: masking of credentials in source locations
package logger
