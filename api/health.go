package api

import (
	"net/http"
)

// healthResponse is the body returned by the health endpoint.
type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// healthz reports process liveness. The server has no external
// dependencies to probe at startup (state stores open lazily per
// project), so a 200 means the HTTP listener is up.
func healthz(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Version: version,
		})
	}
}
