package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nongxian/apperr"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// Client posts messages to the relay as JSON.
type Client struct {
	RelayURL   string
	HTTPClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func NewClient(relayURL string, opts ...Option) *Client {
	c := &Client{
		RelayURL: relayURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send fails with a transport error when the relay is unreachable, answers
// non-2xx, or reports success=false.
func (c *Client) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if c.RelayURL == "" {
		return nil, apperr.TransportError("郵件服務未設定", fmt.Errorf("relay url is empty"))
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, apperr.InternalError("郵件內容格式錯誤", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RelayURL, bytes.NewReader(b))
	if err != nil {
		return nil, apperr.InternalError("郵件服務設定錯誤", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.TransportError("郵件服務連線失敗", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.TransportError("郵件服務回應讀取失敗", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.TransportError("郵件服務回應格式錯誤",
			fmt.Errorf("relay %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
	if resp.StatusCode/100 != 2 || !out.Success {
		return nil, apperr.TransportError("郵件寄送失敗", fmt.Errorf("relay %d: %s", resp.StatusCode, out.Message))
	}
	if out.Data == nil {
		out.Data = &SendResult{To: msg.To, Subject: msg.Subject}
	}
	return out.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
