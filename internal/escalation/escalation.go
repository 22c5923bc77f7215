// Package escalation files support tickets for questions the bot could not
// answer, by SMTP email or the Zendesk ticket API. Delivery runs through an
// asynchronous dispatcher whose outcomes are logged and counted instead of
// vanishing in a dropped goroutine.
package escalation

import (
	"context"
	"fmt"
	"strings"

	"github.com/groundcovergroup/supportbot/internal/session"
)

// Ticket is one escalation request captured from a conversation.
type Ticket struct {
	Question  string
	Name      string
	Email     string
	SessionID string
	History   []session.Message
}

// Delivery describes how a ticket left the system.
type Delivery struct {
	// Method is "email", "zendesk" or "mock".
	Method string
	// Mocked is true when no real backend was configured and the ticket was
	// only logged.
	Mocked bool
	// Ref is a backend reference (zendesk ticket ID) when available.
	Ref string
}

// Sender delivers a ticket to one backend.
type Sender interface {
	Send(ctx context.Context, t Ticket) (Delivery, error)
	Method() string
}

// renderHistory formats the trailing conversation for a ticket body.
func renderHistory(history []session.Message, max int) string {
	if len(history) > max {
		history = history[len(history)-max:]
	}

	var b strings.Builder
	for _, m := range history {
		role := "Klant"
		if m.Role == session.RoleAssistant {
			role = "Bot"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}

// ticketBody builds the plain-text body shared by both backends.
func ticketBody(t Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vraag: %s\n", t.Question)
	fmt.Fprintf(&b, "Naam: %s\n", t.Name)
	fmt.Fprintf(&b, "E-mail: %s\n", t.Email)
	fmt.Fprintf(&b, "Sessie: %s\n", t.SessionID)

	if len(t.History) > 0 {
		b.WriteString("\nGespreksgeschiedenis:\n")
		b.WriteString(renderHistory(t.History, 10))
	}
	return b.String()
}
