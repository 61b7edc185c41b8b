package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/pkg/backoff"
	"github.com/webstore4eto/messaging/internal/pkg/logger"
	"github.com/webstore4eto/messaging/internal/port"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_messages_processed_total",
		Help: "Messages taken through one dispatch attempt, by channel and outcome.",
	}, []string{"type", "outcome"})

	messagesReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "queue_messages_reclaimed_total",
		Help: "Messages returned to pending by the stale-lease sweep.",
	})
)

// ProcessorOptions tunes one worker's queue pass.
type ProcessorOptions struct {
	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
	LeaseTimeout time.Duration
	Backoff      backoff.Policy
}

// Processor drives the queue: claim a batch, dispatch every message
// concurrently, record each outcome, then sweep stale leases. One message's
// failure never touches its siblings.
type Processor struct {
	queue      port.MessageQueue
	subs       port.SubscriptionRepository
	dispatcher *Dispatcher
	events     port.Publisher
	opts       ProcessorOptions
}

func NewProcessor(
	queue port.MessageQueue,
	subs port.SubscriptionRepository,
	dispatcher *Dispatcher,
	events port.Publisher,
	opts ProcessorOptions,
) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.LeaseTimeout <= 0 {
		opts.LeaseTimeout = 10 * time.Minute
	}
	if opts.Backoff.Initial <= 0 {
		opts.Backoff = backoff.Default()
	}
	return &Processor{
		queue:      queue,
		subs:       subs,
		dispatcher: dispatcher,
		events:     events,
		opts:       opts,
	}
}

// Run polls the queue until the context is done.
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil {
			logger.From(ctx).Error("queue pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single claim -> dispatch -> complete -> sweep pass.
func (p *Processor) RunOnce(ctx context.Context) error {
	start := time.Now()

	claimed, err := p.queue.ClaimBatch(ctx, p.opts.BatchSize, domain.AllMessageTypes, p.opts.MaxAttempts)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, msg := range claimed {
		wg.Add(1)
		go func(msg domain.Message) {
			defer wg.Done()
			p.process(ctx, msg)
		}(msg)
	}
	wg.Wait()

	reclaimed, err := p.queue.ReclaimStale(ctx, p.opts.LeaseTimeout, p.opts.Backoff.Initial)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		messagesReclaimed.Add(float64(reclaimed))
		logger.From(ctx).Warn("reclaimed stale leases", "count", reclaimed)
	}

	logger.From(ctx).Debug("queue pass completed",
		"claimed", len(claimed), "elapsed", time.Since(start))
	return nil
}

func (p *Processor) process(ctx context.Context, msg domain.Message) {
	log := logger.From(ctx).With("message_id", msg.ID, "type", string(msg.Type))

	res, err := p.dispatcher.Dispatch(ctx, msg)
	switch {
	case err != nil:
		p.recordFailure(ctx, msg, err, log)

	case res.Success:
		if err := p.queue.MarkSent(ctx, msg.ID); err != nil {
			log.Error("mark sent", "error", err)
			return
		}
		messagesProcessed.WithLabelValues(string(msg.Type), "sent").Inc()
		p.publishSent(ctx, msg)

	case res.Expired:
		messagesProcessed.WithLabelValues(string(msg.Type), "expired").Inc()
		p.publishExpired(ctx, msg)

	case res.Terminal:
		messagesProcessed.WithLabelValues(string(msg.Type), "failed").Inc()
		p.publishFailed(ctx, msg, "", msg.Attempts)

	default:
		// Returned to pending by the dispatcher (recipient offline).
		messagesProcessed.WithLabelValues(string(msg.Type), "deferred").Inc()
	}
}

// recordFailure applies the classifier verdict: retryable failures with
// attempts remaining go back to pending with backoff and decayed priority,
// everything else is terminal.
func (p *Processor) recordFailure(ctx context.Context, msg domain.Message, dispatchErr error, log *slog.Logger) {
	class := Classify(dispatchErr)
	attempts := msg.Attempts + 1
	delay := p.opts.Backoff.Delay(attempts)

	status := domain.MessageStatusFailed
	if class.Retry && attempts < p.opts.MaxAttempts {
		status = domain.MessageStatusPending
	}

	if err := p.queue.MarkRetryOrFail(ctx, msg.ID, status, delay); err != nil {
		log.Error("mark retry or fail", "error", err)
		return
	}

	// A gone broadcast endpoint deactivates its subscription so the next
	// enqueue skips it.
	if class.Type == ErrorTypeSubscriptionNotFound && msg.SubscriptionID != "" {
		if err := p.subs.Deactivate(ctx, msg.SubscriptionID); err != nil {
			log.Error("deactivate subscription", "subscription_id", msg.SubscriptionID, "error", err)
		}
	}

	log.Warn("delivery attempt failed",
		"error_type", string(class.Type), "retry", status == domain.MessageStatusPending,
		"attempts", attempts, "error", dispatchErr)

	if status == domain.MessageStatusFailed {
		messagesProcessed.WithLabelValues(string(msg.Type), "failed").Inc()
		p.publishFailed(ctx, msg, string(class.Type), attempts)
	} else {
		messagesProcessed.WithLabelValues(string(msg.Type), "retried").Inc()
	}
}

func (p *Processor) publishSent(ctx context.Context, msg domain.Message) {
	if p.events == nil {
		return
	}
	recipient := msg.RecipientID
	if recipient == "" {
		recipient = msg.RecipientEmail
	}
	if err := p.events.PublishMessageSent(ctx, domain.MessageSent{
		MessageID: msg.ID,
		Type:      string(msg.Type),
		Recipient: recipient,
	}); err != nil {
		logger.From(ctx).Warn("publish sent event", "message_id", msg.ID, "error", err)
	}
}

func (p *Processor) publishFailed(ctx context.Context, msg domain.Message, errorType string, attempts int) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishMessageFailed(ctx, domain.MessageFailed{
		MessageID: msg.ID,
		Type:      string(msg.Type),
		ErrorType: errorType,
		Attempts:  attempts,
	}); err != nil {
		logger.From(ctx).Warn("publish failed event", "message_id", msg.ID, "error", err)
	}
}

func (p *Processor) publishExpired(ctx context.Context, msg domain.Message) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishMessageExpired(ctx, domain.MessageExpired{
		MessageID:      msg.ID,
		NotificationID: msg.NotificationID,
	}); err != nil {
		logger.From(ctx).Warn("publish expired event", "message_id", msg.ID, "error", err)
	}
}
