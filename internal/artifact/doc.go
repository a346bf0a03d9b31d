// Package artifact defines the versioned file-record model at the core of loom.
//
// An Artifact is one versioned file in a project's authoritative state: a
// path, its content, a declared language, a structural type, an ownership
// tag, and a per-path version number. A Proposed is the ephemeral candidate
// form parsed from generator output before validation and commit.
//
// The package owns the rules every other layer depends on:
//   - path safety (no traversal, no absolute paths, no reserved prefixes)
//   - the known language set and the extension each language implies
//   - ownership semantics, including the ErrAuthority sentinel
//
// Persistence, versioning, and retrieval live in internal/state; the
// validation chain lives in internal/validate.
package artifact
