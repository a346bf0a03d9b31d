package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output.
//
// Use this to keep test output quiet. log.Logger is a type alias for
// *slog.Logger, so the result can be passed anywhere the internal/log
// package's Logger is expected; log.NewNop() returns the same thing.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
