package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/orchestrator"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
)

// MaxInstructionLength bounds the instruction accepted per generation
// request. Long instructions inflate the prompt without adding signal.
const MaxInstructionLength = 10_000

// generateHandler serves generation and prompt preview for one project.
type generateHandler struct {
	orch     *orchestrator.Orchestrator
	registry *project.Registry
	pool     *state.Pool
	logger   *slog.Logger
}

// GenerateRequest is the request body for generation and prompt preview.
type GenerateRequest struct {
	Instruction  string   `json:"instruction"`
	AllowedPaths []string `json:"allowed_paths,omitempty"`
}

// generate runs the full pipeline for one instruction and returns the
// committed artifacts. Validation and authority failures surface as 4xx;
// a malformed model response is a 502.
func (h *generateHandler) generate(w http.ResponseWriter, r *http.Request) {
	id, store, req, err := h.prepare(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.orch.Run(r.Context(), store, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// A successful generation is activity worth reflecting on the
	// project record. Failing to touch it is not worth failing the request.
	if err := h.registry.Touch(r.Context(), id); err != nil {
		h.logger.Warn("failed to touch project", "project_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// preview assembles the prompt a generation request would send without
// calling the model.
func (h *generateHandler) preview(w http.ResponseWriter, r *http.Request) {
	_, store, req, err := h.prepare(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	prompt, err := h.orch.Preview(r.Context(), store, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, prompt)
}

// prepare resolves the project, opens its state store, and decodes the
// request body into an orchestrator request.
func (h *generateHandler) prepare(r *http.Request) (uuid.UUID, *state.Store, orchestrator.Request, error) {
	id, err := pathID(r)
	if err != nil {
		return uuid.Nil, nil, orchestrator.Request{}, err
	}

	if _, err := h.registry.Get(r.Context(), id); err != nil {
		return uuid.Nil, nil, orchestrator.Request{}, err
	}

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return uuid.Nil, nil, orchestrator.Request{}, fmt.Errorf("%w: invalid request body", errBadRequest)
	}
	if strings.TrimSpace(body.Instruction) == "" {
		return uuid.Nil, nil, orchestrator.Request{}, fmt.Errorf("%w: instruction is required", errBadRequest)
	}
	if len(body.Instruction) > MaxInstructionLength {
		return uuid.Nil, nil, orchestrator.Request{}, fmt.Errorf("%w: instruction too long (max %d characters)",
			errBadRequest, MaxInstructionLength)
	}

	store, err := h.pool.Get(id.String())
	if err != nil {
		return uuid.Nil, nil, orchestrator.Request{}, err
	}

	return id, store, orchestrator.Request{
		ProjectID:    id.String(),
		Instruction:  body.Instruction,
		AllowedPaths: body.AllowedPaths,
	}, nil
}
