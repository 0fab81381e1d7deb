package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/nats-io/nats.go"
)

// Client calls tools over NATS request/reply. It is what an agent
// process (or a test) uses against the gateway.
type Client struct {
	nc     *nats.Conn
	prefix string
}

// NewClient creates a tool client over an established connection.
func NewClient(nc *nats.Conn, opts ...ClientOption) *Client {
	c := &Client{
		nc:     nc,
		prefix: DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientSubjectPrefix overrides the tool subject prefix.
func WithClientSubjectPrefix(prefix string) ClientOption {
	return func(c *Client) { c.prefix = prefix }
}

// Call invokes one tool and decodes the operation result. The payload
// is marshalled to JSON; pass nil for operations without arguments.
func (c *Client) Call(ctx context.Context, operation string, payload any) (*domain.OperationResult, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for %s: %w", operation, err)
		}
	}

	msg, err := c.nc.RequestWithContext(ctx, c.prefix+operation, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", operation, err)
	}

	var res domain.OperationResult
	if err := json.Unmarshal(msg.Data, &res); err != nil {
		return nil, fmt.Errorf("decode reply for %s: %w", operation, err)
	}
	return &res, nil
}

// ListTools returns the operation names the gateway exposes.
func (c *Client) ListTools(ctx context.Context) ([]string, error) {
	msg, err := c.nc.RequestWithContext(ctx, c.prefix+"list", nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	var body struct {
		Success    bool     `json:"success"`
		Operations []string `json:"operations"`
	}
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}
	return body.Operations, nil
}
