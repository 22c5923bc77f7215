package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/groundcovergroup/supportbot/internal/knowledge"
	"github.com/groundcovergroup/supportbot/internal/log"
	"github.com/groundcovergroup/supportbot/internal/session"
	"github.com/groundcovergroup/supportbot/internal/testutil"
)

type engineFixture struct {
	engine *Engine
	llm    *testutil.MockLLM
	store  *fakeSearchStore
}

func newEngineFixture(t *testing.T, results []knowledge.Result) *engineFixture {
	t.Helper()

	g := testutil.NewGenkit(t)
	llm := testutil.NewMockLLM("standaard antwoord")
	llm.Register(g)

	store := &fakeSearchStore{results: results}
	retriever, err := NewRetriever(store, 1.2, time.Minute, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	engine, err := NewEngine(Config{
		Genkit:    g,
		ModelName: testutil.MockModelName,
		Retriever: retriever,
		BrandName: "GroundCover",
		Logger:    log.NewNop(),
		Retry:     fastRetry(),
	})
	if err != nil {
		t.Fatal(err)
	}

	return &engineFixture{engine: engine, llm: llm, store: store}
}

func relevantChunk() []knowledge.Result {
	return []knowledge.Result{
		result("retouren.txt_chunk_0", "retouren.txt",
			"Je kunt je bestelling binnen 30 dagen retourneren.", 0.4),
	}
}

func TestAnswerGrounded(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.AddResponse("retourneren", "Je hebt 30 dagen om te retourneren.")

	got := f.engine.Answer(context.Background(), "Wat is het retourbeleid?", nil, "nl")

	if got.Kind != KindAnswer {
		t.Fatalf("Kind = %v, want KindAnswer", got.Kind)
	}
	if got.Text != "Je hebt 30 dagen om te retourneren." {
		t.Errorf("Text = %q", got.Text)
	}

	calls := f.llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("model called %d times, want 1 (no history, no reformulation)", len(calls))
	}
	if !strings.Contains(calls[0].System, "binnen 30 dagen retourneren") {
		t.Error("system prompt should carry the retrieved context")
	}
}

func TestAnswerUnknownMarker(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.AddResponse("retourneren", "__UNKNOWN__")

	got := f.engine.Answer(context.Background(), "Wat is het retourbeleid?", nil, "nl")
	if got.Kind != KindUnknown {
		t.Errorf("Kind = %v, want KindUnknown", got.Kind)
	}
	if got.Text != "" {
		t.Errorf("marker must not leak, got %q", got.Text)
	}
}

func TestAnswerHumanRequestedMarker(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.AddResponse("retourneren", "Natuurlijk! __HUMAN_REQUESTED__")

	got := f.engine.Answer(context.Background(), "mag ik een medewerker?", nil, "nl")
	if got.Kind != KindHumanRequested {
		t.Errorf("Kind = %v, want KindHumanRequested", got.Kind)
	}
}

func TestAnswerNoContextNoHistoryShortCircuits(t *testing.T) {
	f := newEngineFixture(t, nil)

	got := f.engine.Answer(context.Background(), "Verkopen jullie auto's?", nil, "nl")

	if got.Kind != KindUnknown {
		t.Errorf("Kind = %v, want KindUnknown", got.Kind)
	}
	if f.llm.CallCount() != 0 {
		t.Errorf("model called %d times, want 0", f.llm.CallCount())
	}
}

func TestAnswerNoContextWithHistoryUsesDegradedPrompt(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.llm.AddResponse("geen productdocumentatie", "Zoals ik al zei: 30 dagen.")

	history := []session.Message{
		{Role: session.RoleUser, Content: "wat is het retourbeleid"},
		{Role: session.RoleAssistant, Content: "30 dagen"},
	}
	got := f.engine.Answer(context.Background(), "en daarna", history, "nl")

	if got.Kind != KindAnswer {
		t.Fatalf("Kind = %v, want KindAnswer", got.Kind)
	}
	if got.Text != "Zoals ik al zei: 30 dagen." {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestAnswerModelFailureYieldsApology(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.FailWith(testutil.ErrModelDown)

	got := f.engine.Answer(context.Background(), "Wat is het retourbeleid?", nil, "nl")
	if got.Kind != KindAnswer {
		t.Fatalf("Kind = %v, want KindAnswer", got.Kind)
	}
	if got.Text != apologyText("nl") {
		t.Errorf("Text = %q, want the Dutch apology", got.Text)
	}

	gotEN := f.engine.Answer(context.Background(), "What is the return policy?", nil, "en")
	if gotEN.Text != apologyText("en") {
		t.Errorf("Text = %q, want the English apology", gotEN.Text)
	}
}

func TestAnswerReformulatesWithHistory(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.AddResponse("herschrijf de laatste klantvraag", "verzendkosten tuinset Verona")
	f.llm.AddResponse("concrete producten", "tuinset Verona, kussenset Luna")
	f.llm.AddResponse("retourneren", "Verzending kost 4,95.")

	history := []session.Message{
		{Role: session.RoleUser, Content: "vertel me over de tuinset Verona"},
		{Role: session.RoleAssistant, Content: "De Verona is een 4-delige set."},
	}
	got := f.engine.Answer(context.Background(), "en de verzendkosten?", history, "nl")

	if got.Kind != KindAnswer {
		t.Fatalf("Kind = %v", got.Kind)
	}
	if len(f.store.queries) != 1 {
		t.Fatalf("store searched %d times, want 1", len(f.store.queries))
	}
	q := f.store.queries[0]
	if !strings.Contains(q, "verzendkosten tuinset Verona") {
		t.Errorf("search query %q should contain the reformulation", q)
	}
	if !strings.Contains(q, "kussenset Luna") {
		t.Errorf("search query %q should carry the entity the reformulation missed", q)
	}
	if strings.Count(q, "tuinset Verona") != 1 {
		t.Errorf("search query %q repeats an entity the reformulation already names", q)
	}
}

func TestMergeEntities(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		entities string
		want     string
	}{
		{"missing entity appended", "wat kost verzending", "tuinset Verona", "wat kost verzending tuinset Verona"},
		{"present entity skipped", "Wat kost de tuinset Verona?", "tuinset Verona", "Wat kost de tuinset Verona?"},
		{"case-insensitive match", "wat kost de TUINSET VERONA", "Tuinset Verona", "wat kost de TUINSET VERONA"},
		{"mixed list", "verzendkosten tuinset Verona", "tuinset Verona, bestelnummer 1234567", "verzendkosten tuinset Verona bestelnummer 1234567"},
		{"duplicate within list", "verzendkosten", "kussenset Luna, kussenset Luna", "verzendkosten kussenset Luna"},
		{"blank entries ignored", "verzendkosten", " , ,kussenset Luna", "verzendkosten kussenset Luna"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeEntities(tt.query, tt.entities); got != tt.want {
				t.Errorf("mergeEntities(%q, %q) = %q, want %q", tt.query, tt.entities, got, tt.want)
			}
		})
	}
}

func TestAnswerTranslatesEnglishQueries(t *testing.T) {
	f := newEngineFixture(t, relevantChunk())
	f.llm.AddResponse("vertaal deze zoekvraag", "wat zijn de verzendkosten")
	f.llm.AddResponse("retourneren", "Shipping costs 4.95.")

	got := f.engine.Answer(context.Background(), "what are the shipping costs?", nil, "en")

	if got.Kind != KindAnswer {
		t.Fatalf("Kind = %v", got.Kind)
	}
	if len(f.store.queries) != 1 || f.store.queries[0] != "wat zijn de verzendkosten" {
		t.Errorf("store queried with %v, want the Dutch translation", f.store.queries)
	}
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.store.err = testutil.ErrModelDown
	f.llm.AddResponse("geen productdocumentatie", "Ik kijk het na!")

	history := []session.Message{{Role: session.RoleUser, Content: "hoi"}}
	got := f.engine.Answer(context.Background(), "waar blijft mijn pakket", history, "nl")

	if got.Kind != KindAnswer || got.Text != "Ik kijk het na!" {
		t.Errorf("got %+v, want degraded answer", got)
	}
}

func TestNewEngineValidation(t *testing.T) {
	g := testutil.NewGenkit(t)
	retriever, _ := NewRetriever(&fakeSearchStore{}, 1.2, time.Minute, log.NewNop())

	if _, err := NewEngine(Config{ModelName: "m", Retriever: retriever}); err == nil {
		t.Error("missing genkit should be rejected")
	}
	if _, err := NewEngine(Config{Genkit: g, Retriever: retriever}); err == nil {
		t.Error("missing model name should be rejected")
	}
	if _, err := NewEngine(Config{Genkit: g, ModelName: "m"}); err == nil {
		t.Error("missing retriever should be rejected")
	}
}
