// Package logger provides structured logging for minikv.
//
//   - logger.go: slog-based logger, global level control
//   - context.go: logger and connection ID propagation
//   - redact.go: masking of secret-looking attributes
//
// Components receive a *slog.Logger obtained from Logger.Slog so they
// share the handler, level and redaction rules configured here.
package logger
