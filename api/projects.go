package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

// MaxProjectNameLength bounds the name accepted at project creation.
const MaxProjectNameLength = 100

// projectHandler serves project CRUD under /v1/projects.
type projectHandler struct {
	registry *project.Registry
	pool     *state.Pool
	logger   *slog.Logger
}

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name     string `json:"name"`
	Template string `json:"template,omitempty"`
}

// create registers a project and, when a template is named, seeds the
// template scaffold into the project's state store as version 1.
func (h *projectHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, h.logger, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}
	if len(req.Name) > MaxProjectNameLength {
		writeError(w, h.logger, fmt.Errorf("%w: name too long (max %d characters)", errBadRequest, MaxProjectNameLength))
		return
	}
	if req.Template != "" && !project.ValidTemplate(req.Template) {
		writeError(w, h.logger, fmt.Errorf("%w: unknown template %q, known templates: %s",
			errBadRequest, req.Template, strings.Join(project.Templates(), ", ")))
		return
	}

	p, err := h.registry.Create(r.Context(), req.Name, req.Template)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.seedTemplate(r.Context(), p); err != nil {
		// Roll the registry entry back so a failed seed does not leave
		// a project with no scaffold behind.
		if delErr := h.registry.Delete(r.Context(), p.ID); delErr != nil {
			h.logger.Error("rollback after seed failure failed",
				"project_id", p.ID, "error", delErr)
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// seedTemplate commits the template scaffold, if any, into the project's
// state store.
func (h *projectHandler) seedTemplate(ctx context.Context, p project.Project) error {
	seeds, err := project.TemplateArtifacts(p.Template)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	store, err := h.pool.Get(p.ID.String())
	if err != nil {
		return err
	}
	if _, err := store.CommitAll(ctx, seeds); err != nil {
		return fmt.Errorf("seeding template %q: %w", p.Template, err)
	}

	h.logger.Info("template seeded",
		"project_id", p.ID, "template", p.Template, "artifacts", len(seeds))
	return nil
}

// list returns every registered project, oldest first.
func (h *projectHandler) list(w http.ResponseWriter, r *http.Request) {
	projects, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"total":    len(projects),
	})
}

// get returns a single project by id.
func (h *projectHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	p, err := h.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// delete removes a project from the registry along with its stored state.
func (h *projectHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment as a project UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid project id %q", errBadRequest, raw)
	}
	return id, nil
}
