package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

// State listing bounds.
const (
	DefaultStateLimit = state.DefaultRetrieveLimit
	MaxStateLimit     = 50
)

// stateHandler exposes read-only views of a project's artifact state.
type stateHandler struct {
	registry *project.Registry
	pool     *state.Pool
	logger   *slog.Logger
}

// list returns artifacts for a project.
//
// Query parameters:
//   - path:  full version history for one path, oldest first
//   - q:     semantic retrieval over active artifacts
//   - limit: result cap for semantic retrieval (default 10, max 50)
//   - scope: "all" includes inactive versions; default is active only
func (h *stateHandler) list(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.registry.Get(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	store, err := h.pool.Get(id.String())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	params := r.URL.Query()

	var arts []artifact.Artifact
	switch {
	case params.Get("path") != "":
		arts, err = store.History(r.Context(), params.Get("path"))
	case params.Get("q") != "":
		limit := parseIntParam(r, "limit", DefaultStateLimit, 1, MaxStateLimit)
		arts, err = store.Retrieve(r.Context(),
			state.WithQuery(params.Get("q")),
			state.WithLimit(limit))
	case params.Get("scope") == "all":
		arts, err = store.Artifacts(r.Context())
	default:
		arts, err = store.Active(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"artifacts": arts,
		"total":     len(arts),
	})
}

// parseIntParam parses an integer query parameter with bounds checking.
// Out-of-range values clamp rather than fail.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
