package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/artifact"
)

// ExpandDependencies returns the seed artifacts plus every active artifact
// transitively reachable through dependency references, deduplicated.
//
// Cycles terminate through a visited set keyed by artifact id. References
// to missing or inactive artifacts are skipped silently; a broken
// reference is not an error at this layer. Seeds keep their given order
// and discovered dependencies follow in breadth-first discovery order.
func (s *Store) ExpandDependencies(ctx context.Context, seeds []artifact.Artifact) ([]artifact.Artifact, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	activeByID := make(map[uuid.UUID]artifact.Artifact)
	err := s.withShared(ctx, func(arts []artifact.Artifact) error {
		for _, a := range arts {
			if a.Active {
				activeByID[a.ID] = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	visited := make(map[uuid.UUID]bool, len(seeds))
	out := make([]artifact.Artifact, 0, len(seeds))
	var queue []uuid.UUID

	for _, a := range seeds {
		if visited[a.ID] {
			continue
		}
		visited[a.ID] = true
		out = append(out, a)
		queue = append(queue, a.Dependencies...)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		a, ok := activeByID[id]
		if !ok {
			continue
		}
		out = append(out, a)
		queue = append(queue, a.Dependencies...)
	}
	return out, nil
}
