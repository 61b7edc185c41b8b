// Package noop is the publisher used when no event broker is configured.
package noop

import (
	"context"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/port"
)

type Publisher struct{}

func NewPublisher() *Publisher { return &Publisher{} }

func (Publisher) PublishMessageSent(context.Context, domain.MessageSent) error     { return nil }
func (Publisher) PublishMessageFailed(context.Context, domain.MessageFailed) error { return nil }
func (Publisher) PublishMessageExpired(context.Context, domain.MessageExpired) error {
	return nil
}

var _ port.Publisher = (*Publisher)(nil)
