package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// maxChatBody bounds the request body. Messages are capped far lower by
// the dialogue engine; this just stops abusive payloads early.
const maxChatBody = 64 << 10

// ChatEngine handles one chat message for a session. Implemented by
// dialogue.Engine.
type ChatEngine interface {
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)
}

type chatRequest struct {
	// SessionID may be omitted; a fresh one is minted and returned.
	SessionID string `json:"session_id" validate:"max=128"`
	Message   string `json:"message" validate:"max=4000"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"response"`
	RequestID string `json:"request_id,omitempty"`
}

type chatHandler struct {
	engine   ChatEngine
	validate *validator.Validate
	logger   *slog.Logger
}

// send handles POST /api/v1/chat. Empty and oversized messages still get a
// 200 with a friendly reply; only malformed requests are rejected.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest

	body := http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, body)

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id may be at most 128 chars", h.logger)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	h.logger.Info("chat message received",
		"session", req.SessionID,
		"message", redactPII(req.Message),
		"request_id", requestIDFromContext(r.Context()),
	)

	reply, err := h.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("handling chat message failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "chat_failed", "could not process message", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
		RequestID: requestIDFromContext(r.Context()),
	}, h.logger)
}
