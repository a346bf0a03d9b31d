package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/knowledge"
)

// MaxKnowledgeSearchLimit caps results per knowledge search.
const MaxKnowledgeSearchLimit = 20

// knowledgeHandler serves the global knowledge base.
type knowledgeHandler struct {
	store  *knowledge.Store
	logger *slog.Logger
}

// AddEntryRequest is the request body for adding a knowledge entry.
// An empty ID gets a generated one.
type AddEntryRequest struct {
	ID      string   `json:"id,omitempty"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// add embeds and stores one entry. Re-adding an existing ID replaces it.
func (h *knowledgeHandler) add(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid request body", errBadRequest))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, h.logger, fmt.Errorf("%w: content is required", errBadRequest))
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	entry := knowledge.Entry{
		ID:        req.ID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Add(r.Context(), entry); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// search returns the entries most similar to the query, best first.
//
// Query parameters:
//   - q:     search text (required)
//   - limit: result cap (default 5, max 20)
//   - tags:  comma-separated tag filter; entries must share at least one
func (h *knowledgeHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, h.logger, fmt.Errorf("%w: query parameter q is required", errBadRequest))
		return
	}

	opts := []knowledge.SearchOption{
		knowledge.WithLimit(parseIntParam(r, "limit", knowledge.DefaultLimit, 1, MaxKnowledgeSearchLimit)),
	}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		opts = append(opts, knowledge.WithTags(strings.Split(raw, ",")...))
	}

	results, err := h.store.Search(r.Context(), query, opts...)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   len(results),
	})
}
