// Package rag turns customer questions into grounded answers: query
// reformulation, cached vector retrieval, and answer synthesis with a typed
// outcome instead of in-band marker strings.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/groundcovergroup/supportbot/internal/session"
)

const (
	// reformulateHistoryWindow is how many trailing messages inform query
	// reformulation.
	reformulateHistoryWindow = 6
	// entityHistoryWindow is how many trailing messages are scanned for
	// entities, each truncated to entityMessageLimit characters.
	entityHistoryWindow = 4
	entityMessageLimit  = 500
)

// Config collects the Engine dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string
	Retriever *Retriever
	BrandName string
	UseEmojis bool // allow the occasional emoji in answers
	Logger    *slog.Logger
	Retry     RetryConfig
}

func (c *Config) validate() error {
	if c.Genkit == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Retriever == nil {
		return fmt.Errorf("retriever is required")
	}
	return nil
}

// Engine answers customer questions from the knowledge base.
type Engine struct {
	g         *genkit.Genkit
	modelName string
	retriever *Retriever
	brand     string
	emojis    bool
	logger    *slog.Logger
	retry     RetryConfig
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "GroundCover"
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Engine{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		retriever: cfg.Retriever,
		brand:     cfg.BrandName,
		emojis:    cfg.UseEmojis,
		logger:    cfg.Logger,
		retry:     cfg.Retry,
	}, nil
}

// Answer produces a typed result for the query. lang is "nl" or "en".
//
// The search query is the reformulated question plus any entities carried
// over from the conversation; English questions are translated to Dutch
// before retrieval because the knowledge base is Dutch.
func (e *Engine) Answer(ctx context.Context, query string, history []session.Message, lang string) Result {
	searchQuery := e.reformulate(ctx, query, history)

	if entities := e.extractEntities(ctx, history); entities != "" {
		searchQuery = mergeEntities(searchQuery, entities)
	}
	if lang == "en" {
		searchQuery = e.translateForSearch(ctx, searchQuery)
	}

	retrieved, err := e.retriever.Retrieve(ctx, searchQuery)
	if err != nil {
		e.logger.Warn("retrieval failed, continuing without context", "error", err)
		retrieved = Retrieved{}
	}

	// Nothing to ground on and nothing to talk about: don't burn a model
	// call to find out we don't know.
	if retrieved.Text == "" && len(history) == 0 {
		return Result{Kind: KindUnknown}
	}

	var system string
	if retrieved.Text != "" {
		system = answerSystemPrompt(e.brand, lang, retrieved.Text, e.emojis)
	} else {
		system = historyOnlySystemPrompt(e.brand, lang, lastAssistantStatements(history, 2))
	}

	messages := historyToMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(query)))

	raw, err := e.generate(ctx,
		ai.WithSystem(system),
		ai.WithMessages(messages...),
	)
	if err != nil {
		e.logger.Error("answer generation failed", "error", err)
		return Result{Kind: KindAnswer, Text: apologyText(lang)}
	}

	result := parseOutcome(raw)
	e.logger.Debug("answer synthesized",
		"kind", result.Kind,
		"sources", retrieved.Sources,
		"context_length", len(retrieved.Text),
	)
	return result
}

// reformulate rewrites a follow-up into a standalone search query. Without
// history the question already stands alone.
func (e *Engine) reformulate(ctx context.Context, query string, history []session.Message) string {
	if len(history) == 0 {
		return query
	}

	transcript := renderHistory(tail(history, reformulateHistoryWindow), 0)
	raw, err := e.generate(ctx, ai.WithPrompt(reformulatePrompt, transcript, query))
	if err != nil {
		e.logger.Warn("reformulation failed, using original query", "error", err)
		return query
	}

	reformulated := strings.TrimSpace(raw)
	if reformulated == "" {
		return query
	}
	return reformulated
}

// extractEntities pulls product names and order numbers out of recent
// conversation so retrieval doesn't lose track of the subject.
func (e *Engine) extractEntities(ctx context.Context, history []session.Message) string {
	if len(history) == 0 {
		return ""
	}

	transcript := renderHistory(tail(history, entityHistoryWindow), entityMessageLimit)
	raw, err := e.generate(ctx, ai.WithPrompt(entitiesPrompt, transcript))
	if err != nil {
		e.logger.Warn("entity extraction failed", "error", err)
		return ""
	}

	entities := strings.TrimSpace(raw)
	if entities == "" || strings.EqualFold(entities, "NONE") {
		return ""
	}
	return entities
}

// mergeEntities appends extracted entities the search query does not
// already mention. Case-insensitive substring check, so a reformulation
// that names the product is not padded with a duplicate.
func mergeEntities(query, entities string) string {
	lower := strings.ToLower(query)
	for _, entity := range strings.Split(entities, ",") {
		entity = strings.TrimSpace(entity)
		if entity == "" || strings.Contains(lower, strings.ToLower(entity)) {
			continue
		}
		query += " " + entity
		lower += " " + strings.ToLower(entity)
	}
	return query
}

// translateForSearch translates an English search query to Dutch. On
// failure the untranslated query is still usable, just less precise.
func (e *Engine) translateForSearch(ctx context.Context, query string) string {
	raw, err := e.generate(ctx, ai.WithPrompt(translatePrompt, query))
	if err != nil {
		e.logger.Warn("search translation failed, using original", "error", err)
		return query
	}

	translated := strings.TrimSpace(raw)
	if translated == "" {
		return query
	}
	return translated
}

// generate runs one model call with retry and returns the response text.
func (e *Engine) generate(ctx context.Context, opts ...ai.GenerateOption) (string, error) {
	return generateWithRetry(ctx, e.logger, e.retry, func(ctx context.Context) (string, error) {
		allOpts := append([]ai.GenerateOption{ai.WithModelName(e.modelName)}, opts...)
		resp, err := genkit.Generate(ctx, e.g, allOpts...)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
}

func historyToMessages(history []session.Message) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return messages
}

// renderHistory flattens messages into "rol: tekst" lines for prompts.
// limit > 0 truncates each message body.
func renderHistory(history []session.Message, limit int) string {
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		content := m.Content
		if limit > 0 && len(content) > limit {
			content = content[:limit]
		}
		role := "klant"
		if m.Role == session.RoleAssistant {
			role = "assistent"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

// lastAssistantStatements returns up to n of the assistant's most recent
// replies, oldest first.
func lastAssistantStatements(history []session.Message, n int) []string {
	var out []string
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if history[i].Role == session.RoleAssistant {
			out = append(out, history[i].Content)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func tail(history []session.Message, n int) []session.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// apologyText is the reply of last resort when the model is unreachable.
func apologyText(lang string) string {
	if lang == "en" {
		return "Oops, something went wrong on my end! Please try again."
	}
	return "Oeps, er ging even iets mis aan mijn kant! Probeer het nog eens?"
}
