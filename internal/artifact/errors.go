package artifact

import "errors"

// Sentinel errors for artifact operations.
// These are part of the public API and should be checked with errors.Is().
var (
	// ErrNotFound is returned when no artifact exists for the requested path or id.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidPath is returned when a path fails safety validation.
	ErrInvalidPath = errors.New("invalid artifact path")

	// ErrUnknownLanguage is returned when the declared language is not in the known set.
	ErrUnknownLanguage = errors.New("unknown language")

	// ErrAuthority is returned when an automated change targets a user-owned
	// path without explicit permission. Callers should surface these
	// separately from generic validation failures so the user can allow the
	// path and retry.
	//
	// Example:
	//
	//	_, err := store.Commit(ctx, candidate)
	//	if errors.Is(err, artifact.ErrAuthority) {
	//	    // ask the user to add the path to allowed_paths
	//	}
	ErrAuthority = errors.New("authority violation")
)
