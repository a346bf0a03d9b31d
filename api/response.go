package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/llm"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/validate"
)

// errBadRequest marks malformed client input (bad ids, undecodable
// bodies, missing fields). Handlers wrap it so errorStatus maps the whole
// class to 400.
var errBadRequest = errors.New("bad request")

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy to ensure headers are only sent after successful encoding.
// This allows returning a proper 500 error if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff") // Prevent MIME type sniffing attacks
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Log at debug level - client disconnects are common and expected
		slog.Debug("failed to write response body", "error", err)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeErrorBody writes a JSON error response with an explicit status and code.
func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError maps a pipeline or storage error onto the API's status
// taxonomy and writes it. 5xx responses hide the underlying message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := errorStatus(err)

	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.Error("request failed", "error", err, "status", status)
		message = "internal server error"
	}

	writeErrorBody(w, status, code, message)
}

// errorStatus classifies an error into a status code and a stable
// machine-readable code string.
//
// ErrAuthority is checked before ErrRejected: authority failures are a
// conflict with protected state (409), not a syntactic rejection (422).
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, validate.ErrAuthority):
		return http.StatusConflict, "authority_conflict"
	case errors.Is(err, validate.ErrRejected):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, llm.ErrMalformedOutput):
		return http.StatusBadGateway, "generation_malformed"
	case errors.Is(err, project.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
