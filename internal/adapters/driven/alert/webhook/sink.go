// Package webhook delivers batch alerts to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/deckhand-cli/internal/core/domain"
	"github.com/custodia-labs/deckhand-cli/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.AlertSink = (*Sink)(nil)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 10 * time.Second

// Sink posts alerts as JSON to a webhook URL.
type Sink struct {
	client *http.Client
	url    string
}

// NewSink creates a webhook alert sink.
func NewSink(url string) (*Sink, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: webhook url is required", domain.ErrInvalidInput)
	}
	return &Sink{
		client: &http.Client{Timeout: DefaultTimeout},
		url:    url,
	}, nil
}

// Send delivers an alert. The caller treats failures as best effort.
func (s *Sink) Send(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
