package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type sessionHandler struct {
	welcomeNL string
	welcomeEN string
	logger    *slog.Logger
}

// create handles POST /api/v1/sessions: mints a fresh session ID for a new
// conversation and hands the widget its opening message. No server-side
// state exists until the first chat message.
func (h *sessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]string{
		"session_id": uuid.New().String(),
	}
	if h.welcomeNL != "" {
		resp["welcome"] = h.welcomeNL
	}
	if h.welcomeEN != "" {
		resp["welcome_en"] = h.welcomeEN
	}
	writeJSON(w, http.StatusCreated, resp, h.logger)
}
