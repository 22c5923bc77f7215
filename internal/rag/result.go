package rag

import "strings"

// Kind classifies the outcome of answer synthesis.
type Kind int

const (
	// KindAnswer is a normal grounded reply.
	KindAnswer Kind = iota
	// KindUnknown means the knowledge base cannot answer the question.
	KindUnknown
	// KindHumanRequested means the user asked for a human agent.
	KindHumanRequested
)

// Result is the typed outcome of an Answer call. Callers branch on Kind
// instead of scanning the text for magic markers.
type Result struct {
	Kind Kind
	Text string
}

// The model signals non-answer outcomes with these markers in its output.
// They are parsed out here and never reach the user.
const (
	markerUnknown        = "__UNKNOWN__"
	markerHumanRequested = "__HUMAN_REQUESTED__"
)

// parseOutcome maps raw model output to a Result. A marker anywhere in the
// text wins; the human-handoff marker takes precedence.
func parseOutcome(raw string) Result {
	if strings.Contains(raw, markerHumanRequested) {
		return Result{Kind: KindHumanRequested}
	}
	if strings.Contains(raw, markerUnknown) {
		return Result{Kind: KindUnknown}
	}
	return Result{Kind: KindAnswer, Text: strings.TrimSpace(raw)}
}
