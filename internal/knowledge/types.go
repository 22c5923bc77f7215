package knowledge

import "time"

// Chunk is one embedded fragment of a knowledge-base document.
//
// IDs are deterministic ({source stem}_chunk_{n}) so re-ingesting the same
// file overwrites instead of duplicating.
type Chunk struct {
	ID        string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Source returns the origin filename recorded in the chunk metadata.
func (c Chunk) Source() string {
	return c.Metadata[MetaSource]
}

// Metadata keys written by the ingestion pipeline.
const (
	MetaSource   = "source"
	MetaTitle    = "title"
	MetaCategory = "category"
)

// Result is a chunk returned by vector search together with its L2 distance
// from the query embedding. Smaller distance means more relevant.
type Result struct {
	Chunk    Chunk
	Distance float64
}

// SearchOption customizes a Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	timeout time.Duration
}

// WithTopK overrides how many chunks Search fetches. Default 10.
func WithTopK(k int) SearchOption {
	return func(cfg *searchConfig) {
		if k > 0 {
			cfg.topK = k
		}
	}
}

// WithTimeout overrides the per-search deadline. Default 10s.
func WithTimeout(d time.Duration) SearchOption {
	return func(cfg *searchConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{
		topK:    10,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
