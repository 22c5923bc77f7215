// Package shipping looks up order shipment status and renders it for chat.
package shipping

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Shipment statuses as reported by the carrier API.
const (
	StatusDelivered = "delivered"
	StatusInTransit = "in_transit"
	StatusAtDepot   = "at_depot"
)

// Status is one shipment status snapshot.
type Status struct {
	OrderID     string `json:"order_id"`
	State       string `json:"state"`
	ETA         string `json:"eta,omitempty"`
	TrackingURL string `json:"tracking_url,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Config holds the carrier API settings. An empty BaseURL enables mock
// mode with deterministic fake statuses.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client fetches shipment status over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a Client with a 10-second timeout.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Lookup returns the status for an order. Without a configured API it
// fabricates a stable status from the order ID so the whole conversation
// flow works in development.
func (c *Client) Lookup(ctx context.Context, orderID string) (Status, error) {
	if c.cfg.BaseURL == "" {
		return mockStatus(orderID), nil
	}

	url := fmt.Sprintf("%s/shipments/%s/status", c.cfg.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Status{}, fmt.Errorf("building shipping request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("calling shipping api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Status{}, fmt.Errorf("order %s not found", orderID)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Status{}, fmt.Errorf("shipping api returned %d: %s", resp.StatusCode, snippet)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, fmt.Errorf("decoding shipping response: %w", err)
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}

	c.logger.Debug("shipment status fetched", "order", orderID, "state", status.State)
	return status, nil
}

// mockStatus derives a stable fake status from the order ID.
func mockStatus(orderID string) Status {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))

	switch h.Sum32() % 3 {
	case 0:
		return Status{
			OrderID: orderID,
			State:   StatusDelivered,
		}
	case 1:
		return Status{
			OrderID:     orderID,
			State:       StatusInTransit,
			ETA:         "morgen voor 17:00",
			TrackingURL: "https://track.example.com/" + orderID,
		}
	default:
		return Status{
			OrderID:     orderID,
			State:       StatusAtDepot,
			Note:        "wacht op de volgende bezorgronde",
			TrackingURL: "https://track.example.com/" + orderID,
		}
	}
}
