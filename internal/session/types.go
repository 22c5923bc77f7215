package session

import "time"

// Escalation stages of a conversation.
const (
	// StageInactive is normal question answering.
	StageInactive = "inactive"
	// StageAwaitingName means the bot asked for the user's name.
	StageAwaitingName = "awaiting_name"
	// StageAwaitingEmail means the bot asked for the user's email address.
	StageAwaitingEmail = "awaiting_email"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxHistory bounds the stored conversation. Older messages fall off; the
// model only ever sees recent turns anyway.
const maxHistory = 10

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingOrder is a detected order number waiting for the user to confirm
// a status lookup.
type PendingOrder struct {
	ID      string    `json:"id"`
	AskedAt time.Time `json:"asked_at"`
}

// State is everything remembered about one session between requests.
type State struct {
	// Stage is one of the Stage* constants. The zero value deserializes to
	// inactive via Normalize.
	Stage    string `json:"stage"`
	Language string `json:"language,omitempty"`

	// Escalation capture fields, only meaningful outside StageInactive.
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Question string `json:"question,omitempty"`

	History      []Message     `json:"history,omitempty"`
	PendingOrder *PendingOrder `json:"pending_order,omitempty"`
}

// Normalize repairs fields after deserialization of old or partial files.
func (s *State) Normalize() {
	if s.Stage == "" {
		s.Stage = StageInactive
	}
	if len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
}

// AppendExchange records a user/assistant turn pair, dropping the oldest
// messages past the history cap.
func (s *State) AppendExchange(userMsg, assistantMsg string) {
	s.History = append(s.History,
		Message{Role: RoleUser, Content: userMsg},
		Message{Role: RoleAssistant, Content: assistantMsg},
	)
	if len(s.History) > maxHistory {
		s.History = s.History[len(s.History)-maxHistory:]
	}
}

// ResetEscalation clears capture state and history after a ticket is filed
// or the user backs out.
func (s *State) ResetEscalation() {
	s.Stage = StageInactive
	s.Name = ""
	s.Email = ""
	s.Question = ""
}

// RecentHistory returns up to n of the newest messages without copying the
// backing array beyond what callers may mutate.
func (s *State) RecentHistory(n int) []Message {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}
