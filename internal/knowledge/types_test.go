package knowledge

import (
	"testing"
	"time"
)

func TestChunkSource(t *testing.T) {
	c := Chunk{
		ID:       "retouren.txt_chunk_0",
		Metadata: map[string]string{MetaSource: "retouren.txt", MetaTitle: "Retourbeleid"},
	}
	if got := c.Source(); got != "retouren.txt" {
		t.Errorf("Source() = %q", got)
	}

	var empty Chunk
	if got := empty.Source(); got != "" {
		t.Errorf("Source() on empty chunk = %q, want empty", got)
	}
}

func TestBuildSearchConfigDefaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.topK != 10 {
		t.Errorf("topK = %d, want 10", cfg.topK)
	}
	if cfg.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", cfg.timeout)
	}
}

func TestBuildSearchConfigOptions(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{WithTopK(3), WithTimeout(time.Second)})
	if cfg.topK != 3 || cfg.timeout != time.Second {
		t.Errorf("cfg = %+v", cfg)
	}

	// Invalid values keep the defaults.
	cfg = buildSearchConfig([]SearchOption{WithTopK(0), WithTimeout(-1)})
	if cfg.topK != 10 || cfg.timeout != 10*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}
