package validate

import "github.com/loomkit/loom/internal/artifact"

// FirstAuthorityViolation returns the first path whose currently active
// artifact is user-owned and which is not in the allowed set, and true if
// one exists. Paths with no active artifact never violate.
//
// This is the single authority predicate in the system. The validation
// chain applies it to the proposed paths; the orchestrator applies it to
// the retrieved state before the expensive generation call. Both outcomes
// are identical by construction because the logic lives only here.
func FirstAuthorityViolation(paths []string, activeByPath map[string]artifact.Artifact, allowed PathSet) (string, bool) {
	for _, p := range paths {
		active, ok := activeByPath[p]
		if !ok {
			continue
		}
		if active.Ownership == artifact.OwnershipUser && !allowed.Allows(p) {
			return p, true
		}
	}
	return "", false
}
