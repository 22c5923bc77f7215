package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/groundcovergroup/supportbot/db"
	"github.com/groundcovergroup/supportbot/internal/config"
	"github.com/groundcovergroup/supportbot/internal/dialogue"
	"github.com/groundcovergroup/supportbot/internal/escalation"
	"github.com/groundcovergroup/supportbot/internal/ingest"
	"github.com/groundcovergroup/supportbot/internal/knowledge"
	"github.com/groundcovergroup/supportbot/internal/rag"
	"github.com/groundcovergroup/supportbot/internal/session"
	"github.com/groundcovergroup/supportbot/internal/shipping"
)

// Setup creates and initializes the application. Call Close on the
// returned App to release resources.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(pool, embedder, logger)

	retriever, err := rag.NewRetriever(a.Knowledge, cfg.RelevanceThreshold, cfg.CacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	a.Retriever = retriever

	engine, err := rag.NewEngine(rag.Config{
		Genkit:    g,
		ModelName: cfg.FullModelName(),
		Retriever: retriever,
		BrandName: cfg.Brand.Name,
		UseEmojis: cfg.Brand.UseEmojis,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rag engine: %w", err)
	}
	a.RAG = engine

	sessions, err := session.NewStore(cfg.SessionDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	a.Escalations = escalation.NewDispatcher(provideSender(cfg, logger), 0, logger)
	a.Shipping = shipping.NewClient(shipping.Config{
		BaseURL: cfg.Shipping.BaseURL,
		APIKey:  cfg.Shipping.APIKey,
	}, logger)

	dlg, err := dialogue.New(dialogue.Config{
		Sessions:    sessions,
		Responder:   engine,
		Shipping:    a.Shipping,
		Escalations: a.Escalations,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dialogue engine: %w", err)
	}
	a.Dialogue = dlg

	indexer, err := ingest.NewIndexer(a.Knowledge, cfg.KnowledgeDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating indexer: %w", err)
	}
	a.Indexer = indexer

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool
// with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider. Only
// gemini is supported today; the switch keeps the door open.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		g := genkit.Init(ctx,
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.GeminiAPIKey}),
		)
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// provideSender picks the ticket delivery backend. The "mock" method uses
// an unconfigured email sender, which logs tickets instead of sending.
func provideSender(cfg *config.Config, logger *slog.Logger) escalation.Sender {
	switch cfg.EscalationMethod {
	case "zendesk":
		return escalation.NewZendeskSender(escalation.ZendeskConfig{
			Subdomain: cfg.Zendesk.Subdomain,
			Email:     cfg.Zendesk.Email,
			APIToken:  cfg.Zendesk.APIToken,
		}, logger)
	case "email":
		return escalation.NewEmailSender(escalation.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}, logger)
	default:
		return escalation.NewEmailSender(escalation.EmailConfig{}, logger)
	}
}
