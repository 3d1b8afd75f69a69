// Package logging provides opt-in file-based structured logging with
// rotation for sparsedex. Logs are written to ~/.sparsedex/logs/ in
// JSON form via log/slog.
//
// Logging is purely observational: no search or build path changes
// behavior based on a logging failure.
package logging
