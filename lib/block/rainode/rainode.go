// Package rainode implements the HTTP client of the node RPC server.
package rainode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// maxAnswer caps the size of the node answers read.
const maxAnswer = 8 << 20

// Errors returned.
var (
	ErrBadAnswer = errors.New("node answer is not valid JSON")
	ErrStatus    = errors.New("node answered with an unexpected status")
)

// Client is a node RPC client.
type Client struct {
	url string
	c   *http.Client
}

// New returns a client to the node listening at url. Calls fail after timeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{url: url, c: &http.Client{Timeout: timeout}}
}

// Call posts payload to the node and returns its JSON answer unmodified.
func (n *Client) Call(ctx context.Context, payload []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cannot build node request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := n.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("node call failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxAnswer))
	if err != nil {
		return nil, fmt.Errorf("cannot read node answer: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrStatus, res.StatusCode)
	}

	if !json.Valid(body) {
		return nil, ErrBadAnswer
	}

	return json.RawMessage(body), nil
}
