// Package ingest walks the knowledge-base directory, extracts and chunks
// document text, and pushes embedded chunks into the store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/groundcovergroup/supportbot/internal/knowledge"
)

// Store is the slice of the knowledge store the indexer uses.
type Store interface {
	Upsert(ctx context.Context, chunk knowledge.Chunk) error
	HasChunk(ctx context.Context, id string) (bool, error)
	Sources(ctx context.Context) ([]string, error)
	DeleteSource(ctx context.Context, source string) (int64, error)
}

// Result summarizes one indexing run.
type Result struct {
	FilesAdded     int
	FilesSkipped   int
	FilesFailed    int
	ChunksAdded    int
	SourcesRemoved int
	Duration       time.Duration
}

// Indexer ingests supported files from a directory tree.
type Indexer struct {
	store  Store
	dir    string
	logger *slog.Logger
}

// NewIndexer creates an Indexer over dir. A nil logger falls back to
// slog.Default.
func NewIndexer(store Store, dir string, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("knowledge directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, dir: dir, logger: logger}, nil
}

// Run indexes every .txt and .pdf under the directory and removes chunks
// whose source file no longer exists.
//
// A file whose first chunk is already stored is skipped wholesale, which
// makes repeated runs cheap; editing a file in place requires deleting its
// chunks first (or wiping the table) since chunk IDs stay stable.
func (ix *Indexer) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	seen := make(map[string]bool)

	err := filepath.WalkDir(ix.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".pdf" {
			return nil
		}

		source := filepath.Base(path)
		seen[source] = true

		added, err := ix.indexFile(ctx, path, source)
		if err != nil {
			res.FilesFailed++
			ix.logger.Warn("indexing file failed", "file", source, "error", err)
			return nil
		}
		if added == 0 {
			res.FilesSkipped++
			return nil
		}
		res.FilesAdded++
		res.ChunksAdded += added
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", ix.dir, err)
	}

	removed, err := ix.removeStale(ctx, seen)
	if err != nil {
		ix.logger.Warn("stale source cleanup failed", "error", err)
	}
	res.SourcesRemoved = removed

	res.Duration = time.Since(start)
	ix.logger.Info("indexing run complete",
		"added", res.FilesAdded,
		"skipped", res.FilesSkipped,
		"failed", res.FilesFailed,
		"chunks", res.ChunksAdded,
		"removed_sources", res.SourcesRemoved,
		"duration", res.Duration,
	)
	return res, nil
}

// indexFile chunks and stores one file. Returns the number of chunks
// written, 0 when the file was already indexed.
func (ix *Indexer) indexFile(ctx context.Context, path, source string) (int, error) {
	exists, err := ix.store.HasChunk(ctx, chunkID(source, 0))
	if err != nil {
		return 0, fmt.Errorf("checking existing chunks: %w", err)
	}
	if exists {
		ix.logger.Debug("file already indexed", "file", source)
		return 0, nil
	}

	text, err := extractText(path)
	if err != nil {
		return 0, err
	}

	chunks := ChunkText(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no extractable text")
	}

	title, category := extractMetadata(text)

	added := 0
	for i, content := range chunks {
		metadata := map[string]string{knowledge.MetaSource: source}
		if title != "" {
			metadata[knowledge.MetaTitle] = title
		}
		if category != "" {
			metadata[knowledge.MetaCategory] = category
		}

		chunk := knowledge.Chunk{
			ID:       chunkID(source, i),
			Content:  content,
			Metadata: metadata,
		}
		if err := ix.store.Upsert(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			// Partial ingestion of a file is acceptable; skip the chunk.
			ix.logger.Warn("storing chunk failed, skipping", "file", source, "chunk", i, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return 0, fmt.Errorf("no chunks stored")
	}

	ix.logger.Debug("indexed file", "file", source, "chunks", added)
	return added, nil
}

// removeStale deletes chunks of sources that disappeared from disk.
func (ix *Indexer) removeStale(ctx context.Context, seen map[string]bool) (int, error) {
	sources, err := ix.store.Sources(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, source := range sources {
		if seen[source] {
			continue
		}
		if _, err := ix.store.DeleteSource(ctx, source); err != nil {
			return removed, err
		}
		ix.logger.Info("removed stale source", "source", source)
		removed++
	}
	return removed, nil
}

func chunkID(source string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", source, i)
}
