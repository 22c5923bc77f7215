package knowledge

import (
	"context"
	"testing"

	"github.com/groundcovergroup/supportbot/internal/log"
	"github.com/groundcovergroup/supportbot/internal/testutil"
)

// The chunks table stores vector(768) embeddings.
const testEmbedDim = 768

func axisVector(axis int, scale float32) []float32 {
	vec := make([]float32, testEmbedDim)
	vec[axis] = scale
	return vec
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := testutil.StartPostgres(t)
	g := testutil.NewGenkit(t)
	emb := testutil.NewMockEmbedder(testEmbedDim)
	store := New(pool, emb.Register(g), log.NewNop())
	ctx := context.Background()

	// Pinned vectors make the <-> ordering deterministic: the query shares
	// an axis with the returns chunk and is orthogonal to the rest.
	emb.SetVector("Retourneren kan binnen 30 dagen.", axisVector(0, 1))
	emb.SetVector("Verzending duurt twee werkdagen.", axisVector(1, 1))
	emb.SetVector("Betalen kan met iDEAL.", axisVector(2, 1))
	emb.SetVector("hoe kan ik retourneren", axisVector(0, 0.9))

	chunks := []Chunk{
		{ID: "retouren.txt_chunk_0", Content: "Retourneren kan binnen 30 dagen.", Metadata: map[string]string{"source": "retouren.txt"}},
		{ID: "verzending.txt_chunk_0", Content: "Verzending duurt twee werkdagen.", Metadata: map[string]string{"source": "verzending.txt"}},
		{ID: "verzending.txt_chunk_1", Content: "Betalen kan met iDEAL.", Metadata: map[string]string{"source": "verzending.txt"}},
	}
	for _, c := range chunks {
		if err := store.Upsert(ctx, c); err != nil {
			t.Fatalf("Upsert(%s) error: %v", c.ID, err)
		}
	}

	t.Run("search orders by distance", func(t *testing.T) {
		results, err := store.Search(ctx, "hoe kan ik retourneren", WithTopK(3))
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		if results[0].Chunk.ID != "retouren.txt_chunk_0" {
			t.Errorf("closest chunk = %s, want retouren.txt_chunk_0", results[0].Chunk.ID)
		}
		for i := 1; i < len(results); i++ {
			if results[i].Distance < results[i-1].Distance {
				t.Errorf("distances out of order: %v before %v", results[i-1].Distance, results[i].Distance)
			}
		}
		if got := results[0].Chunk.Metadata["source"]; got != "retouren.txt" {
			t.Errorf("metadata source = %q, want retouren.txt", got)
		}
		if results[0].Chunk.CreatedAt.IsZero() {
			t.Error("CreatedAt not round-tripped")
		}
	})

	t.Run("has chunk", func(t *testing.T) {
		exists, err := store.HasChunk(ctx, "retouren.txt_chunk_0")
		if err != nil {
			t.Fatalf("HasChunk() error: %v", err)
		}
		if !exists {
			t.Error("stored chunk reported missing")
		}

		exists, err = store.HasChunk(ctx, "nooit-opgeslagen")
		if err != nil {
			t.Fatalf("HasChunk() error: %v", err)
		}
		if exists {
			t.Error("unknown chunk reported present")
		}
	})

	t.Run("upsert replaces same id", func(t *testing.T) {
		updated := chunks[0]
		updated.Content = "Retourneren kan binnen 60 dagen."
		emb.SetVector(updated.Content, axisVector(0, 1))

		if err := store.Upsert(ctx, updated); err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}

		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error: %v", err)
		}
		if count != 3 {
			t.Errorf("Count = %d after replacing upsert, want 3", count)
		}

		results, err := store.Search(ctx, "hoe kan ik retourneren", WithTopK(1))
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 1 || results[0].Chunk.Content != updated.Content {
			t.Errorf("Search top result = %+v, want the replaced content", results)
		}
	})

	t.Run("sources and delete source", func(t *testing.T) {
		sources, err := store.Sources(ctx)
		if err != nil {
			t.Fatalf("Sources() error: %v", err)
		}
		if len(sources) != 2 {
			t.Fatalf("Sources = %v, want 2 entries", sources)
		}

		removed, err := store.DeleteSource(ctx, "verzending.txt")
		if err != nil {
			t.Fatalf("DeleteSource() error: %v", err)
		}
		if removed != 2 {
			t.Errorf("DeleteSource removed %d chunks, want 2", removed)
		}

		sources, err = store.Sources(ctx)
		if err != nil {
			t.Fatalf("Sources() error: %v", err)
		}
		if len(sources) != 1 || sources[0] != "retouren.txt" {
			t.Errorf("Sources = %v, want only retouren.txt", sources)
		}

		count, err := store.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error: %v", err)
		}
		if count != 1 {
			t.Errorf("Count = %d after DeleteSource, want 1", count)
		}
	})
}
