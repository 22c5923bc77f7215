package rag

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// Intent classifies a reply to the "what's your name?" ticket question.
type Intent string

const (
	// IntentGivingName: the user supplied a name.
	IntentGivingName Intent = "giving_name"
	// IntentDeclining: the user no longer wants a ticket.
	IntentDeclining Intent = "declining"
	// IntentNewQuestion: the user changed the subject with a fresh question.
	IntentNewQuestion Intent = "new_question"
)

// declineKeywords short-circuit intent classification: these replies are
// unambiguous refusals and not worth a model call.
var declineKeywords = map[string]bool{
	"nee":        true,
	"nee hoor":   true,
	"geen":       true,
	"laat maar":  true,
	"hoeft niet": true,
	"nvm":        true,
	"no":         true,
	"nope":       true,
	"never mind": true,
	"nevermind":  true,
	"cancel":     true,
	"stop":       true,
	"annuleer":   true,
}

// DetectLanguage returns "nl" or "en". Very short messages ("ok", "ja")
// carry no usable signal and default to Dutch, as does any failure.
func (e *Engine) DetectLanguage(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 5 {
		return "nl"
	}

	raw, err := e.generate(ctx, ai.WithPrompt(detectLanguagePrompt, trimmed))
	if err != nil {
		e.logger.Warn("language detection failed, defaulting to nl", "error", err)
		return "nl"
	}

	if strings.Contains(strings.ToLower(raw), "en") && !strings.Contains(strings.ToLower(raw), "nl") {
		return "en"
	}
	return "nl"
}

// DetectTicketIntent classifies a reply to the name question. Keyword
// declines and obvious fresh questions skip the model; everything
// unclassifiable defaults to giving_name so a ticket is never silently
// dropped.
func (e *Engine) DetectTicketIntent(ctx context.Context, message string) Intent {
	normalized := normalizeIntentInput(message)
	if declineKeywords[normalized] {
		return IntentDeclining
	}

	trimmed := strings.TrimSpace(message)
	if strings.Contains(trimmed, "?") && len(trimmed) > 15 {
		return IntentNewQuestion
	}

	raw, err := e.generate(ctx, ai.WithPrompt(ticketIntentPrompt, trimmed))
	if err != nil {
		e.logger.Warn("intent classification failed, assuming giving_name", "error", err)
		return IntentGivingName
	}

	switch {
	case strings.Contains(raw, string(IntentDeclining)):
		return IntentDeclining
	case strings.Contains(raw, string(IntentNewQuestion)):
		return IntentNewQuestion
	default:
		return IntentGivingName
	}
}

// ExtractName pulls a bare name out of replies like "ik ben Jan" or
// "Jan de Vries hier". Fallback is the trimmed message itself, capped.
func (e *Engine) ExtractName(ctx context.Context, message string) string {
	fallback := strings.TrimSpace(message)
	if len(fallback) > 100 {
		fallback = fallback[:100]
	}

	raw, err := e.generate(ctx, ai.WithPrompt(extractNamePrompt, strings.TrimSpace(message)))
	if err != nil {
		e.logger.Warn("name extraction failed, using raw message", "error", err)
		return fallback
	}

	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if name == "" || len(name) > 100 {
		return fallback
	}
	return name
}

// HelpfulUnknown writes a friendly reply for questions the knowledge base
// cannot answer.
func (e *Engine) HelpfulUnknown(ctx context.Context, query, lang string) string {
	raw, err := e.generate(ctx, ai.WithPrompt("%s", helpfulUnknownPrompt(e.brand, lang, query)))
	if err != nil {
		e.logger.Warn("helpful-unknown generation failed, using static fallback", "error", err)
		return staticUnknownText(lang)
	}

	text := strings.TrimSpace(raw)
	if text == "" || strings.Contains(text, markerUnknown) {
		return staticUnknownText(lang)
	}
	return text
}

func staticUnknownText(lang string) string {
	if lang == "en" {
		return "Hmm, I don't have an answer to that one. Try rephrasing your question, or ask me to connect you to one of our employees!"
	}
	return "Hmm, daar heb ik zo geen antwoord op. Probeer je vraag anders te formuleren, of vraag me om je door te verbinden met een van onze medewerkers!"
}

// normalizeIntentInput lowercases and strips trailing punctuation so
// "Nee!" and "nee" classify identically.
func normalizeIntentInput(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	return strings.TrimRight(s, ".!?,;: ")
}
