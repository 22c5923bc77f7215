// Package api is the JSON HTTP surface of the support bot: chat, session
// provisioning, admin reindexing and health probes.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Chat        ChatEngine // Required
	Indexer     Reindexer  // Optional: nil disables the reindex endpoint
	Pinger      Pinger     // Optional: nil skips the DB check in /ready
	AdminKey    string     // Empty disables admin endpoints
	WelcomeNL   string     // Opening message handed out on session creation
	WelcomeEN   string     // English variant
	CORSOrigins []string   // Allowed origins for CORS
	TrustProxy  bool       // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int        // Rate limiter burst size per IP (0 = default 30)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		engine:   cfg.Chat,
		validate: validator.New(),
		logger:   logger,
	}
	sh := &sessionHandler{
		welcomeNL: cfg.WelcomeNL,
		welcomeEN: cfg.WelcomeEN,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/sessions", sh.create)

	if cfg.Indexer != nil {
		ah := &adminHandler{
			indexer:  cfg.Indexer,
			adminKey: cfg.AdminKey,
			logger:   logger,
		}
		mux.HandleFunc("POST /api/v1/admin/reindex", ah.reindex)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill). Chat requests
	// are slow by nature, so the default burst is modest.
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 30
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID sits before Logging so request_id is available in log
	// attributes; CORS before RateLimit so preflight OPTIONS gets headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pinger, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
