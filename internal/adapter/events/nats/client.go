package nats

import (
	"context"
	"encoding/json"

	natspkg "github.com/nats-io/nats.go"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

const (
	subjectMessageSent    = "messaging.message.sent"
	subjectMessageFailed  = "messaging.message.failed"
	subjectMessageExpired = "messaging.message.expired"
)

type Client struct {
	nc *natspkg.Conn
}

func NewClient(url string) (*Client, error) {
	nc, err := natspkg.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	c.nc.Close()
}

func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.Status() == natspkg.CONNECTED
}

func (c *Client) PublishMessageSent(ctx context.Context, event domain.MessageSent) error {
	return c.publish(subjectMessageSent, event)
}

func (c *Client) PublishMessageFailed(ctx context.Context, event domain.MessageFailed) error {
	return c.publish(subjectMessageFailed, event)
}

func (c *Client) PublishMessageExpired(ctx context.Context, event domain.MessageExpired) error {
	return c.publish(subjectMessageExpired, event)
}

func (c *Client) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, data)
}

var _ port.Publisher = (*Client)(nil)
