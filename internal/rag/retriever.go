package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/groundcovergroup/supportbot/internal/knowledge"
)

const (
	// fetchTopK is how many candidates vector search returns before
	// relevance filtering and diversification.
	fetchTopK = 10
	// maxChunks bounds the context handed to the model.
	maxChunks = 5
	// maxPerSource keeps one document from monopolizing the context.
	maxPerSource = 2

	cacheMaxEntries = 50
	cacheEvictBatch = 10

	chunkSeparator = "\n\n---\n\n"
)

// SearchStore is the slice of the knowledge store the retriever uses.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retrieved is the assembled context for one search query.
type Retrieved struct {
	// Text is the concatenated chunk contents, empty when nothing relevant
	// was found.
	Text string
	// Sources names the documents the chunks came from, in rank order.
	Sources []string
}

// Retriever performs cached, diversified vector retrieval.
//
// Identical search queries within the TTL reuse the previous result without
// touching the embedder or the database. The cache is bounded: past
// cacheMaxEntries the oldest cacheEvictBatch entries are dropped.
type Retriever struct {
	store     SearchStore
	cache     *gocache.Cache
	threshold float64
	logger    *slog.Logger
}

// NewRetriever creates a Retriever. threshold is the maximum vector distance
// a chunk may have; ttl bounds cache entry lifetime.
func NewRetriever(store SearchStore, threshold float64, ttl time.Duration, logger *slog.Logger) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %v", threshold)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Retriever{
		store:     store,
		cache:     gocache.New(ttl, 2*ttl),
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Retrieve returns the context for searchQuery: top candidates within the
// relevance threshold, at most maxPerSource per document and maxChunks
// total, rank order preserved.
func (r *Retriever) Retrieve(ctx context.Context, searchQuery string) (Retrieved, error) {
	key := normalizeQuery(searchQuery)
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("retrieval cache hit", "query_length", len(searchQuery))
		return cached.(Retrieved), nil
	}

	results, err := r.store.Search(ctx, searchQuery, knowledge.WithTopK(fetchTopK))
	if err != nil {
		return Retrieved{}, fmt.Errorf("searching knowledge store: %w", err)
	}

	retrieved := r.assemble(results)
	r.cachePut(key, retrieved)

	r.logger.Debug("retrieval complete",
		"candidates", len(results),
		"selected", len(retrieved.Sources),
		"context_length", len(retrieved.Text),
	)
	return retrieved, nil
}

// assemble applies the relevance threshold and source diversification.
func (r *Retriever) assemble(results []knowledge.Result) Retrieved {
	perSource := make(map[string]int)
	var contents, sources []string

	for _, res := range results {
		if res.Distance > r.threshold {
			continue
		}

		source := chunkSource(res.Chunk)
		if perSource[source] >= maxPerSource {
			continue
		}

		perSource[source]++
		contents = append(contents, res.Chunk.Content)
		sources = append(sources, source)

		if len(contents) >= maxChunks {
			break
		}
	}

	return Retrieved{
		Text:    strings.Join(contents, chunkSeparator),
		Sources: sources,
	}
}

// cachePut stores the entry, evicting the oldest batch when full. With a
// uniform TTL the soonest-expiring entries are the oldest inserts.
func (r *Retriever) cachePut(key string, val Retrieved) {
	if r.cache.ItemCount() >= cacheMaxEntries {
		type aged struct {
			key string
			exp int64
		}
		items := r.cache.Items()
		entries := make([]aged, 0, len(items))
		for k, item := range items {
			entries = append(entries, aged{key: k, exp: item.Expiration})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].exp < entries[j].exp })
		for i := 0; i < cacheEvictBatch && i < len(entries); i++ {
			r.cache.Delete(entries[i].key)
		}
		r.logger.Debug("retrieval cache evicted oldest entries", "evicted", min(cacheEvictBatch, len(entries)))
	}
	r.cache.Set(key, val, gocache.DefaultExpiration)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// chunkSource resolves the document a chunk belongs to, falling back to the
// ID convention {source}_chunk_{n} for chunks without metadata.
func chunkSource(c knowledge.Chunk) string {
	if s := c.Source(); s != "" {
		return s
	}
	if idx := strings.LastIndex(c.ID, "_chunk_"); idx > 0 {
		return c.ID[:idx]
	}
	return c.ID
}
