package state

import (
	"context"
	"sort"

	"github.com/loomkit/loom/internal/artifact"
)

// DefaultRetrieveLimit caps results when no WithLimit option is given.
const DefaultRetrieveLimit = 10

// RetrieveOption configures a Retrieve call.
type RetrieveOption func(*retrieveConfig)

type retrieveConfig struct {
	query string
	limit int
	paths []string
}

// WithQuery ranks results by semantic relevance instead of path order.
func WithQuery(q string) RetrieveOption {
	return func(c *retrieveConfig) { c.query = q }
}

// WithLimit caps the number of results. Default is DefaultRetrieveLimit.
func WithLimit(n int) RetrieveOption {
	return func(c *retrieveConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithPaths restricts the candidate set to the given paths.
func WithPaths(paths ...string) RetrieveOption {
	return func(c *retrieveConfig) { c.paths = append(c.paths, paths...) }
}

// Retrieve returns active artifacts for prompt context.
//
// Without a query the order is deterministic: ascending path, identical
// for identical inputs. With a query, candidates are ranked by cosine
// similarity and thresholded; when nothing clears the threshold the
// layout-type artifacts in the candidate set are returned instead, so a
// too-strict threshold can never produce an empty prompt context. Either
// way the result is truncated to the limit.
func (s *Store) Retrieve(ctx context.Context, opts ...RetrieveOption) ([]artifact.Artifact, error) {
	cfg := &retrieveConfig{limit: DefaultRetrieveLimit}
	for _, opt := range opts {
		opt(cfg)
	}

	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}

	candidates := active
	if len(cfg.paths) > 0 {
		wanted := make(map[string]bool, len(cfg.paths))
		for _, p := range cfg.paths {
			wanted[artifact.NormalizePath(p)] = true
		}
		candidates = nil
		for _, a := range active {
			if wanted[a.Path] {
				candidates = append(candidates, a)
			}
		}
	}

	if cfg.query == "" || s.index == nil {
		if cfg.query != "" {
			s.logger.Debug("semantic retrieval not configured, using path order")
		}
		return pathOrdered(candidates, cfg.limit), nil
	}

	// The index always covers the full active set; path filtering applies
	// to the hits, not the index, so one filtered call cannot poison later
	// unfiltered ones.
	hits, err := s.index.rank(ctx, active, cfg.query)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]artifact.Artifact, len(candidates))
	for _, a := range candidates {
		byID[a.ID.String()] = a
	}

	var ranked []artifact.Artifact
	for _, h := range hits {
		if h.Similarity < s.minSim {
			break // hits are sorted best first
		}
		if a, ok := byID[h.ID]; ok {
			ranked = append(ranked, a)
			if len(ranked) == cfg.limit {
				break
			}
		}
	}

	if len(ranked) == 0 {
		s.logger.Debug("semantic retrieval empty, falling back to layouts", "query", cfg.query)
		var layouts []artifact.Artifact
		for _, a := range candidates {
			if a.Type == artifact.TypeLayout {
				layouts = append(layouts, a)
			}
		}
		return pathOrdered(layouts, cfg.limit), nil
	}
	return ranked, nil
}

// pathOrdered sorts by ascending path and truncates to limit.
func pathOrdered(arts []artifact.Artifact, limit int) []artifact.Artifact {
	out := make([]artifact.Artifact, len(arts))
	copy(out, arts)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
