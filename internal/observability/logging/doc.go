// Package logging builds the slog loggers both binaries use and
// carries them through contexts alongside the request ID.
//
// NewLogger is the production JSON logger (level from LOG_LEVEL);
// NewTextLogger is the local-development variant. WithRequestID and
// FromContext/WithLogger thread per-request loggers through the
// replay pipeline so every stage logs under the same request ID.
package logging
