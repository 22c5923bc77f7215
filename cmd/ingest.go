package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/groundcovergroup/supportbot/internal/app"
)

// runIngest indexes the knowledge directory once and exits. Meant for
// CI pipelines and cron jobs; the serve mode exposes the same operation
// over the admin endpoint.
func runIngest() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	res, err := a.Indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("indexing knowledge base: %w", err)
	}

	logger.Info("ingestion finished",
		"files_added", res.FilesAdded,
		"files_skipped", res.FilesSkipped,
		"files_failed", res.FilesFailed,
		"chunks_added", res.ChunksAdded,
		"sources_removed", res.SourcesRemoved,
		"duration", res.Duration,
	)
	return nil
}
