package state

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/loomkit/loom/internal/artifact"
)

// Commit applies one candidate to the project state.
//
// The candidate carries its ownership tag but no version or timestamps;
// those are assigned here, after the exclusive lock is acquired, against
// whatever state the previous writer left behind. The previously active
// artifact at the path is deactivated in the same write, so persistence is
// all-or-nothing for any later reader.
//
// Committing over an active user_modified artifact fails with
// artifact.ErrAuthority unless the candidate is itself user_modified. The
// validation chain rejects such writes long before they get here; this
// check is what keeps the guarantee for callers that bypass the chain.
func (s *Store) Commit(ctx context.Context, candidate artifact.Artifact) (artifact.Artifact, error) {
	out, err := s.CommitAll(ctx, []artifact.Artifact{candidate})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return out[0], nil
}

// CommitAll applies a batch of candidates under a single exclusive lock.
//
// The whole batch is checked against the pre-batch state before anything
// is applied: one authority violation rejects every candidate and the
// state file is untouched. On success all candidates are versioned in
// order and persisted in one write.
func (s *Store) CommitAll(ctx context.Context, candidates []artifact.Artifact) ([]artifact.Artifact, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var committed []artifact.Artifact
	err := s.withExclusive(ctx, func(arts []artifact.Artifact) ([]artifact.Artifact, error) {
		// Pre-validate the batch against the state as read, so a failure
		// in the middle can never leave earlier candidates committed.
		activeByPath := make(map[string]artifact.Artifact)
		for _, a := range arts {
			if a.Active {
				activeByPath[a.Path] = a
			}
		}
		for _, c := range candidates {
			prev, ok := activeByPath[c.Path]
			if ok && prev.Ownership == artifact.OwnershipUser && c.Ownership != artifact.OwnershipUser {
				return nil, fmt.Errorf("path %s is owned by the user: %w", c.Path, artifact.ErrAuthority)
			}
		}

		now := time.Now().UTC()
		next := arts
		for _, c := range candidates {
			var a artifact.Artifact
			next, a = applyCommit(next, c, now)
			committed = append(committed, a)

			s.commits++
			if s.commits%s.cleanupEvery == 0 {
				var dropped int
				next, dropped = retain(next, s.keepInactive)
				if dropped > 0 {
					s.logger.Debug("retention cleanup",
						"dropped", dropped,
						"keep_inactive", s.keepInactive,
					)
				}
			}
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.markIndexStale()
	for _, a := range committed {
		s.logger.Info("artifact committed",
			"path", a.Path,
			"version", a.Version,
			"ownership", a.Ownership,
		)
	}
	return committed, nil
}

// applyCommit versions one candidate against the current list and returns
// the updated list plus the committed artifact. The caller has already
// done the authority check.
func applyCommit(arts []artifact.Artifact, c artifact.Artifact, now time.Time) ([]artifact.Artifact, artifact.Artifact) {
	// Plural on purpose: a hand-edited file may violate the single-active
	// invariant, and commit must repair it rather than propagate it.
	maxActive := 0
	for i, a := range arts {
		if a.Path != c.Path || !a.Active {
			continue
		}
		if a.Version > maxActive {
			maxActive = a.Version
		}
		arts[i].Active = false
		arts[i].UpdatedAt = now
	}

	c.Version = maxActive + 1
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now

	return append(arts, c), c
}

// retain drops superseded versions beyond keep per path, newest first.
// Active artifacts are never dropped. Returns the surviving list and how
// many records were removed.
func retain(arts []artifact.Artifact, keep int) ([]artifact.Artifact, int) {
	inactiveByPath := make(map[string][]int)
	for i, a := range arts {
		if !a.Active {
			inactiveByPath[a.Path] = append(inactiveByPath[a.Path], i)
		}
	}

	drop := make(map[int]bool)
	for _, idxs := range inactiveByPath {
		if len(idxs) <= keep {
			continue
		}
		sort.Slice(idxs, func(i, j int) bool {
			return arts[idxs[i]].Version > arts[idxs[j]].Version
		})
		for _, i := range idxs[keep:] {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return arts, 0
	}

	out := make([]artifact.Artifact, 0, len(arts)-len(drop))
	for i, a := range arts {
		if !drop[i] {
			out = append(out, a)
		}
	}
	return out, len(drop)
}

// markIndexStale flags the semantic index for rebuild on the next query.
func (s *Store) markIndexStale() {
	if s.index != nil {
		s.index.markStale()
	}
}
