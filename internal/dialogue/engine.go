// Package dialogue drives the conversation: it routes each incoming chat
// message through validation, the escalation capture flow, order status
// confirmation and retrieval-augmented answering, and keeps the session
// state consistent across turns.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/groundcovergroup/supportbot/internal/escalation"
	"github.com/groundcovergroup/supportbot/internal/rag"
	"github.com/groundcovergroup/supportbot/internal/session"
	"github.com/groundcovergroup/supportbot/internal/shipping"
)

const (
	// maxMessageLen bounds a single chat message, in runes.
	maxMessageLen = 1000

	// orderConfirmWindow is how long a "do you want the status of #X?"
	// question stays answerable. After that the pending order is dropped
	// and the reply is treated as a fresh message.
	orderConfirmWindow = 5 * time.Minute

	// ticketHistoryLimit caps the conversation excerpt attached to a ticket.
	ticketHistoryLimit = 10
)

var (
	emailRe = regexp.MustCompile(`^[\w.+-]+@[\w-]+\.[\w.-]+$`)
	orderRe = regexp.MustCompile(`#?\b(\d{7,12})\b`)
)

// Confirmation replies to the order status question. Matched against the
// normalized full message, so "Ja!" confirms but "ja dat klopt, maar..."
// falls through to normal processing.
var (
	affirmativeReplies = map[string]bool{
		"ja": true, "ja graag": true, "yes": true, "yep": true,
		"ok": true, "oké": true, "okay": true, "graag": true,
		"prima": true, "is goed": true, "zeker": true,
		"please": true, "sure": true, "y": true, "j": true,
	}
	negativeReplies = map[string]bool{
		"nee": true, "no": true, "nope": true, "niet": true,
		"laat maar": true, "nee bedankt": true,
	}
)

// Responder produces answers and classifications. Implemented by rag.Engine.
type Responder interface {
	Answer(ctx context.Context, query string, history []session.Message, lang string) rag.Result
	DetectLanguage(ctx context.Context, text string) string
	DetectTicketIntent(ctx context.Context, message string) rag.Intent
	ExtractName(ctx context.Context, message string) string
	HelpfulUnknown(ctx context.Context, query, lang string) string
}

// StatusLookup fetches shipment status. Implemented by shipping.Client.
type StatusLookup interface {
	Lookup(ctx context.Context, orderID string) (shipping.Status, error)
}

// Escalator accepts tickets for background delivery. Implemented by
// escalation.Dispatcher.
type Escalator interface {
	Enqueue(t escalation.Ticket) bool
}

// Config wires the engine's collaborators.
type Config struct {
	Sessions    *session.Store
	Responder   Responder
	Shipping    StatusLookup
	Escalations Escalator
	Logger      *slog.Logger

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

func (c Config) validate() error {
	if c.Sessions == nil {
		return errors.New("sessions store is required")
	}
	if c.Responder == nil {
		return errors.New("responder is required")
	}
	if c.Shipping == nil {
		return errors.New("shipping lookup is required")
	}
	if c.Escalations == nil {
		return errors.New("escalator is required")
	}
	return nil
}

// Engine handles chat messages for all sessions.
type Engine struct {
	sessions    *session.Store
	responder   Responder
	shipping    StatusLookup
	escalations Escalator
	logger      *slog.Logger
	now         func() time.Time
}

// New validates the config and builds an Engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		sessions:    cfg.Sessions,
		responder:   cfg.Responder,
		shipping:    cfg.Shipping,
		escalations: cfg.Escalations,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}, nil
}

// HandleMessage processes one user message and returns the reply. The
// session is locked for the duration, so concurrent messages on the same
// session serialize.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	unlock := e.sessions.Lock(sessionID)
	defer unlock()

	st := e.sessions.Load(sessionID)
	lang := st.Language
	if lang == "" {
		lang = "nl"
	}

	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return msgEmpty(lang), nil
	}
	if utf8.RuneCountInString(trimmed) > maxMessageLen {
		return msgTooLong(lang), nil
	}

	reply := e.process(ctx, sessionID, st, trimmed)

	if err := e.sessions.Save(sessionID, st); err != nil {
		e.logger.Warn("saving session failed", "session", sessionID, "error", err)
	}
	return reply, nil
}

// process routes a validated message. Escalation stages may bail out back
// to normal answering when the user changes the subject.
func (e *Engine) process(ctx context.Context, sessionID string, st *session.State, msg string) string {
	switch st.Stage {
	case session.StageAwaitingName:
		if reply, handled := e.handleAwaitingName(ctx, st, msg); handled {
			return reply
		}
	case session.StageAwaitingEmail:
		if reply, handled := e.handleAwaitingEmail(ctx, sessionID, st, msg); handled {
			return reply
		}
	}
	return e.answer(ctx, st, msg)
}

// answer is the normal flow: pending order confirmation, order number
// detection, then retrieval-augmented answering.
func (e *Engine) answer(ctx context.Context, st *session.State, msg string) string {
	lang := st.Language
	if lang == "" {
		lang = "nl"
	}

	if st.PendingOrder != nil {
		pending := *st.PendingOrder
		st.PendingOrder = nil

		if e.now().Sub(pending.AskedAt) < orderConfirmWindow {
			switch classifyConfirmation(msg) {
			case confirmYes:
				reply := e.lookupOrder(ctx, pending.ID, lang)
				st.AppendExchange(msg, reply)
				return reply
			case confirmNo:
				reply := msgOrderDeclined(lang)
				st.AppendExchange(msg, reply)
				return reply
			}
		}
		// Expired or unrelated reply: fall through as a fresh message.
	}

	if orderID := extractOrderID(msg); orderID != "" {
		st.PendingOrder = &session.PendingOrder{ID: orderID, AskedAt: e.now()}
		reply := msgConfirmOrder(lang, orderID)
		st.AppendExchange(msg, reply)
		return reply
	}

	lang = e.responder.DetectLanguage(ctx, msg)
	st.Language = lang

	res := e.responder.Answer(ctx, msg, st.History, lang)

	var reply string
	switch res.Kind {
	case rag.KindHumanRequested:
		st.Stage = session.StageAwaitingName
		st.Question = msg
		reply = msgAskName(lang)
	case rag.KindUnknown:
		reply = e.responder.HelpfulUnknown(ctx, msg, lang)
	default:
		reply = res.Text
	}

	st.AppendExchange(msg, reply)
	return reply
}

// handleAwaitingName interprets the reply to "what's your name?". Returns
// handled=false when the user asked something new instead, so the message
// reprocesses as a fresh question.
func (e *Engine) handleAwaitingName(ctx context.Context, st *session.State, msg string) (string, bool) {
	lang := st.Language
	if lang == "" {
		lang = "nl"
	}

	switch e.responder.DetectTicketIntent(ctx, msg) {
	case rag.IntentDeclining:
		st.ResetEscalation()
		reply := msgDeclined(lang)
		st.AppendExchange(msg, reply)
		return reply, true
	case rag.IntentNewQuestion:
		st.ResetEscalation()
		return "", false
	default:
		name := e.responder.ExtractName(ctx, msg)
		st.Name = name
		st.Stage = session.StageAwaitingEmail
		reply := msgMeet(lang, name)
		st.AppendExchange(msg, reply)
		return reply, true
	}
}

// handleAwaitingEmail interprets the reply to "what's your email address?".
// A valid address files the ticket; anything else is either a back-out, a
// subject change, or a typo we ask to correct.
func (e *Engine) handleAwaitingEmail(ctx context.Context, sessionID string, st *session.State, msg string) (string, bool) {
	lang := st.Language
	if lang == "" {
		lang = "nl"
	}

	if emailRe.MatchString(msg) {
		ticket := escalation.Ticket{
			Question:  st.Question,
			Name:      st.Name,
			Email:     msg,
			SessionID: sessionID,
			History:   st.RecentHistory(ticketHistoryLimit),
		}
		accepted := e.escalations.Enqueue(ticket)

		// Ticket filed (or rejected): either way the capture flow is over
		// and the transcript went along with the ticket.
		st.ResetEscalation()
		st.History = nil

		if !accepted {
			return msgEscalationFailed(lang), true
		}
		return msgEscalated(lang, msg), true
	}

	switch e.responder.DetectTicketIntent(ctx, msg) {
	case rag.IntentDeclining:
		st.ResetEscalation()
		reply := msgDeclined(lang)
		st.AppendExchange(msg, reply)
		return reply, true
	case rag.IntentNewQuestion:
		st.ResetEscalation()
		return "", false
	default:
		return msgInvalidEmail(lang), true
	}
}

func (e *Engine) lookupOrder(ctx context.Context, orderID, lang string) string {
	status, err := e.shipping.Lookup(ctx, orderID)
	if err != nil {
		e.logger.Warn("shipment lookup failed", "order", orderID, "error", err)
		return msgShippingFailed(lang, orderID)
	}
	return shipping.FormatStatus(status, lang)
}

type confirmation int

const (
	confirmOther confirmation = iota
	confirmYes
	confirmNo
)

func classifyConfirmation(msg string) confirmation {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(msg)), ".!?,;: ")
	switch {
	case negativeReplies[normalized]:
		return confirmNo
	case affirmativeReplies[normalized]:
		return confirmYes
	default:
		return confirmOther
	}
}

// extractOrderID finds an order number (7 to 12 digits, optionally prefixed
// with #) in a message. Empty when there is none.
func extractOrderID(msg string) string {
	m := orderRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[1]
}
