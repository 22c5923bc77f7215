package escalation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// ZendeskConfig holds ticket API settings. Missing credentials switch the
// sender to mock mode. BaseURL overrides the derived subdomain URL (tests).
type ZendeskConfig struct {
	Subdomain string
	Email     string
	APIToken  string
	BaseURL   string
}

// ZendeskSender files tickets through the Zendesk REST API.
type ZendeskSender struct {
	cfg    ZendeskConfig
	client *http.Client
	logger *slog.Logger
}

// NewZendeskSender creates a ZendeskSender with a 30-second HTTP timeout.
func NewZendeskSender(cfg ZendeskConfig, logger *slog.Logger) *ZendeskSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZendeskSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

func (s *ZendeskSender) Method() string { return "zendesk" }

type zendeskTicket struct {
	Ticket struct {
		Subject string `json:"subject"`
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
		Requester struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"requester"`
	} `json:"ticket"`
}

// Send creates a Zendesk ticket with the question as subject and the
// conversation in the body.
func (s *ZendeskSender) Send(ctx context.Context, t Ticket) (Delivery, error) {
	if s.cfg.Subdomain == "" && s.cfg.BaseURL == "" || s.cfg.APIToken == "" {
		s.logger.Info("zendesk not configured, mock ticket",
			"name", t.Name, "session", t.SessionID)
		return Delivery{Method: s.Method(), Mocked: true}, nil
	}

	var payload zendeskTicket
	payload.Ticket.Subject = fmt.Sprintf("Supportvraag van %s", t.Name)
	payload.Ticket.Comment.Body = ticketBody(t)
	payload.Ticket.Requester.Name = t.Name
	payload.Ticket.Requester.Email = t.Email

	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshaling zendesk ticket: %w", err)
	}

	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.zendesk.com", s.cfg.Subdomain)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/api/v2/tickets.json", bytes.NewReader(body))
	if err != nil {
		return Delivery{}, fmt.Errorf("building zendesk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.Email+"/token", s.cfg.APIToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return Delivery{}, fmt.Errorf("calling zendesk: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Delivery{}, fmt.Errorf("zendesk returned %d: %s", resp.StatusCode, snippet)
	}

	var created struct {
		Ticket struct {
			ID int64 `json:"id"`
		} `json:"ticket"`
	}
	ref := ""
	if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.Ticket.ID != 0 {
		ref = strconv.FormatInt(created.Ticket.ID, 10)
	}

	s.logger.Info("zendesk ticket created", "session", t.SessionID, "ticket_id", ref)
	return Delivery{Method: s.Method(), Ref: ref}, nil
}
