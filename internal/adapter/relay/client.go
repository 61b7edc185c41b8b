// Package relay forwards in-app events to the gateway instance that owns the
// recipient's live connections.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/webstore4eto/messaging/internal/port"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the event to the gateway's /message endpoint. 2xx means at
// least one live connection took the message; anything else comes back as
// *port.ProviderStatusError for the dispatcher to act on.
func (c *Client) Send(ctx context.Context, req port.RelayRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &port.ProviderStatusError{StatusCode: resp.StatusCode, Body: string(detail)}
}

var _ port.EventRelay = (*Client)(nil)
