package api

import (
	"log/slog"
	"net/http"
)

// root handles GET / — simple status check endpoint.
func root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "HellWorld"}, slog.Default())
}

// health handles GET /health — liveness probe.
func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, slog.Default())
}
