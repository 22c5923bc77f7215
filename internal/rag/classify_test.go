package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/groundcovergroup/supportbot/internal/log"
	"github.com/groundcovergroup/supportbot/internal/testutil"
)

func newClassifierFixture(t *testing.T) *engineFixture {
	t.Helper()

	g := testutil.NewGenkit(t)
	llm := testutil.NewMockLLM("giving_name")
	llm.Register(g)

	store := &fakeSearchStore{}
	retriever, _ := NewRetriever(store, 1.2, time.Minute, log.NewNop())
	engine, err := NewEngine(Config{
		Genkit:    g,
		ModelName: testutil.MockModelName,
		Retriever: retriever,
		Logger:    log.NewNop(),
		Retry:     fastRetry(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &engineFixture{engine: engine, llm: llm, store: store}
}

func TestDetectTicketIntentDeclineKeywords(t *testing.T) {
	f := newClassifierFixture(t)

	for _, msg := range []string{
		"nee", "Nee!", "NEE HOOR", "laat maar", "hoeft niet.", "nvm",
		"no", "nope", "never mind", "cancel", "stop", "annuleer",
	} {
		if got := f.engine.DetectTicketIntent(context.Background(), msg); got != IntentDeclining {
			t.Errorf("DetectTicketIntent(%q) = %v, want declining", msg, got)
		}
	}
	if f.llm.CallCount() != 0 {
		t.Errorf("keyword declines burned %d model calls", f.llm.CallCount())
	}
}

func TestDetectTicketIntentQuestionHeuristic(t *testing.T) {
	f := newClassifierFixture(t)

	msg := "hoe lang duurt de levering eigenlijk?"
	if got := f.engine.DetectTicketIntent(context.Background(), msg); got != IntentNewQuestion {
		t.Errorf("DetectTicketIntent(%q) = %v, want new_question", msg, got)
	}
	if f.llm.CallCount() != 0 {
		t.Error("obvious question should not need the model")
	}
}

func TestDetectTicketIntentModelClassification(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.AddResponse("ik wil toch geen ticket", "declining")

	got := f.engine.DetectTicketIntent(context.Background(), "ik wil toch geen ticket")
	if got != IntentDeclining {
		t.Errorf("intent = %v, want declining", got)
	}
}

func TestDetectTicketIntentDefaultsToGivingName(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.FailWith(testutil.ErrModelDown)

	got := f.engine.DetectTicketIntent(context.Background(), "Jan de Vries")
	if got != IntentGivingName {
		t.Errorf("intent on failure = %v, want giving_name", got)
	}
}

func TestDetectLanguageShortInputDefaultsDutch(t *testing.T) {
	f := newClassifierFixture(t)

	for _, msg := range []string{"ok", "ja", "yes", "", "  hi "} {
		if got := f.engine.DetectLanguage(context.Background(), msg); got != "nl" {
			t.Errorf("DetectLanguage(%q) = %q, want nl", msg, got)
		}
	}
	if f.llm.CallCount() != 0 {
		t.Error("short inputs should not need the model")
	}
}

func TestDetectLanguageModel(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.AddResponse("where is my parcel", "en")
	f.llm.AddResponse("waar is mijn pakket", "nl")

	if got := f.engine.DetectLanguage(context.Background(), "where is my parcel?"); got != "en" {
		t.Errorf("DetectLanguage(en text) = %q, want en", got)
	}
	if got := f.engine.DetectLanguage(context.Background(), "waar is mijn pakket?"); got != "nl" {
		t.Errorf("DetectLanguage(nl text) = %q, want nl", got)
	}
}

func TestDetectLanguageFailureDefaultsDutch(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.FailWith(testutil.ErrModelDown)

	if got := f.engine.DetectLanguage(context.Background(), "a rather long message"); got != "nl" {
		t.Errorf("DetectLanguage on failure = %q, want nl", got)
	}
}

func TestExtractName(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.AddResponse("ik ben jan de vries", "Jan de Vries")

	if got := f.engine.ExtractName(context.Background(), "ik ben Jan de Vries"); got != "Jan de Vries" {
		t.Errorf("ExtractName = %q, want Jan de Vries", got)
	}
}

func TestExtractNameFallback(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.FailWith(testutil.ErrModelDown)

	if got := f.engine.ExtractName(context.Background(), "  Anna  "); got != "Anna" {
		t.Errorf("ExtractName fallback = %q, want Anna", got)
	}

	long := strings.Repeat("x", 150)
	if got := f.engine.ExtractName(context.Background(), long); len(got) != 100 {
		t.Errorf("fallback name length = %d, want 100", len(got))
	}
}

func TestHelpfulUnknown(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.AddResponse("geen antwoord op de onderstaande", "Daar kan ik je helaas niet mee helpen, probeer het anders!")

	got := f.engine.HelpfulUnknown(context.Background(), "verkopen jullie fietsen?", "nl")
	if !strings.Contains(got, "helaas") {
		t.Errorf("HelpfulUnknown = %q", got)
	}
}

func TestHelpfulUnknownFallback(t *testing.T) {
	f := newClassifierFixture(t)
	f.llm.FailWith(testutil.ErrModelDown)

	if got := f.engine.HelpfulUnknown(context.Background(), "vraag", "nl"); got != staticUnknownText("nl") {
		t.Errorf("HelpfulUnknown fallback = %q", got)
	}
	if got := f.engine.HelpfulUnknown(context.Background(), "question", "en"); got != staticUnknownText("en") {
		t.Errorf("HelpfulUnknown EN fallback = %q", got)
	}
}
