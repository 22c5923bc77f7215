// Package app wires the application together: database, AI provider,
// retrieval, sessions, escalation and the dialogue engine.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundcovergroup/supportbot/internal/config"
	"github.com/groundcovergroup/supportbot/internal/dialogue"
	"github.com/groundcovergroup/supportbot/internal/escalation"
	"github.com/groundcovergroup/supportbot/internal/ingest"
	"github.com/groundcovergroup/supportbot/internal/knowledge"
	"github.com/groundcovergroup/supportbot/internal/rag"
	"github.com/groundcovergroup/supportbot/internal/session"
	"github.com/groundcovergroup/supportbot/internal/shipping"
)

// App is the core application container. Setup fills it; Close releases
// everything in reverse order.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit      *genkit.Genkit
	Embedder    ai.Embedder
	DBPool      *pgxpool.Pool
	Knowledge   *knowledge.Store
	Retriever   *rag.Retriever
	RAG         *rag.Engine
	Sessions    *session.Store
	Escalations *escalation.Dispatcher
	Shipping    *shipping.Client
	Dialogue    *dialogue.Engine
	Indexer     *ingest.Indexer
}

// Close gracefully shuts down all resources. The escalation dispatcher
// drains its queue first so accepted tickets still go out.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.Escalations != nil {
		a.Escalations.Close()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.logger().Info("database pool closed")
	}
	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
