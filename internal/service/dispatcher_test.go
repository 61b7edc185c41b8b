package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webstore4eto/messaging/internal/adapter/repository/memory"
	"github.com/webstore4eto/messaging/internal/domain"
	"github.com/webstore4eto/messaging/internal/pkg/presence"
	"github.com/webstore4eto/messaging/internal/port"
)

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	errTo string // when set, err applies only to this recipient
	sent  []port.EmailMessage
}

func (f *fakeMailer) Send(_ context.Context, msg port.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && (f.errTo == "" || f.errTo == msg.To) {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePush struct {
	mu   sync.Mutex
	errs map[string]error // per subscription id
	sent []string
}

func (f *fakePush) Send(_ context.Context, sub domain.Subscription, _ port.PushPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[sub.ID]; ok {
		return err
	}
	f.sent = append(f.sent, sub.ID)
	return nil
}

type fakeRelay struct {
	mu    sync.Mutex
	err   error
	calls []port.RelayRequest
}

func (f *fakeRelay) Send(_ context.Context, req port.RelayRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.err
}

type dispatcherFixture struct {
	queue  *memory.MessageRepositoryStub
	subs   *memory.SubscriptionRepositoryStub
	mailer *fakeMailer
	push   *fakePush
	relay  *fakeRelay
	d      *Dispatcher
}

func newDispatcherFixture(pres *presence.Store) *dispatcherFixture {
	f := &dispatcherFixture{
		queue:  memory.NewMessageRepositoryStub(),
		subs:   memory.NewSubscriptionRepositoryStub(),
		mailer: &fakeMailer{},
		push:   &fakePush{errs: map[string]error{}},
		relay:  &fakeRelay{},
	}
	f.d = NewDispatcher(f.queue, f.subs, f.mailer, f.push, f.relay, pres, false)
	return f
}

func pendingMessage(id string, typ domain.MessageType) domain.Message {
	return domain.Message{
		ID:        id,
		Type:      typ,
		Status:    domain.MessageStatusPending,
		Priority:  3,
		CreatedAt: time.Now(),
	}
}

func TestDispatchEmail_Success(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	msg := pendingMessage("m1", domain.MessageTypeEmail)
	msg.RecipientEmail = "buyer@example.com"
	msg.Subject = "Order confirmed"
	msg.Body = "<p>Thanks!</p>"

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, "buyer@example.com", f.mailer.sent[0].To)
}

func TestDispatchEmail_ProviderErrorBubblesUp(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)
	f.mailer.err = &port.ProviderStatusError{StatusCode: 500}

	res, err := f.d.Dispatch(context.Background(), pendingMessage("m1", domain.MessageTypeEmail))
	require.Error(t, err)
	require.False(t, res.Success)
}

func TestDispatchPush_NoSubscriptionsIsTerminal(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	msg := pendingMessage("m1", domain.MessageTypePush)
	msg.RecipientID = "user-1"
	msg.Attempts = 2
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Terminal)
	require.False(t, res.Success)

	stored, ok := f.queue.Get("m1")
	require.True(t, ok)
	require.Equal(t, domain.MessageStatusFailed, stored.Status)
	// No delivery was attempted, so no attempt is burned.
	require.Equal(t, 2, stored.Attempts)
}

func TestDispatchPush_OneEndpointAliveIsEnough(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	f.subs.Seed(domain.Subscription{ID: "s1", UserID: "user-1", Status: domain.SubscriptionStatusActive})
	f.subs.Seed(domain.Subscription{ID: "s2", UserID: "user-1", Status: domain.SubscriptionStatusActive})
	f.push.errs["s1"] = &port.ProviderStatusError{StatusCode: 500}

	msg := pendingMessage("m1", domain.MessageTypePush)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"s2"}, f.push.sent)
}

func TestDispatchPush_GoneEndpointDeactivates(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	f.subs.Seed(domain.Subscription{ID: "s1", UserID: "user-1", Status: domain.SubscriptionStatusActive})
	f.push.errs["s1"] = &port.ProviderStatusError{StatusCode: 410}

	msg := pendingMessage("m1", domain.MessageTypePush)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Terminal)

	sub, ok := f.subs.Get("s1")
	require.True(t, ok)
	require.Equal(t, domain.SubscriptionStatusInactive, sub.Status)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusFailed, stored.Status)
}

func TestDispatchPushBroadcast_MissingSubscriptionIsTerminal(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	msg := pendingMessage("m1", domain.MessageTypePushBroadcast)
	msg.SubscriptionID = "nope"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Terminal)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusFailed, stored.Status)
}

func TestDispatchPushBroadcast_SendsToSingleEndpoint(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	f.subs.Seed(domain.Subscription{ID: "s1", UserID: "user-1", Status: domain.SubscriptionStatusActive})

	msg := pendingMessage("m1", domain.MessageTypePushBroadcast)
	msg.SubscriptionID = "s1"

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"s1"}, f.push.sent)
}

func TestDispatchInApp_ExpiredSkipsRelay(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	past := time.Now().Add(-time.Hour)
	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	msg.ValidTo = &past
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Expired)
	require.Empty(t, f.relay.calls)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusExpired, stored.Status)
}

func TestDispatchInApp_OfflineRecipientDefers(t *testing.T) {
	t.Parallel()
	pres := presence.NewStore(nil, 0)
	f := newDispatcherFixture(pres)

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.False(t, res.Terminal)
	require.Empty(t, f.relay.calls)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusPending, stored.Status)
	require.Equal(t, 0, stored.Attempts)
}

func TestDispatchInApp_OnlineRecipientRelayed(t *testing.T) {
	t.Parallel()
	pres := presence.NewStore(nil, 0)
	pres.Set(context.Background(), "user-1", true, time.Now())
	f := newDispatcherFixture(pres)

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	msg.Subject = "New answer"
	msg.EventType = "qa.answered"

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, f.relay.calls, 1)
	require.Equal(t, "user-1", f.relay.calls[0].UserID)
	require.Equal(t, "event", f.relay.calls[0].Type)
}

func TestDispatchInApp_NotConnectedDefersWithoutAttempt(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)
	f.relay.err = &port.ProviderStatusError{StatusCode: 404}

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.False(t, res.Terminal)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusPending, stored.Status)
	require.Equal(t, 0, stored.Attempts)
}

func TestDispatchInApp_BadRequestIsTerminal(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)
	f.relay.err = &port.ProviderStatusError{StatusCode: 400}

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Terminal)

	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusFailed, stored.Status)
}

func TestDispatchInApp_GatewayErrorGoesToClassifier(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)
	f.relay.err = &port.ProviderStatusError{StatusCode: 500}

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"
	f.queue.Seed(msg)

	_, err := f.d.Dispatch(context.Background(), msg)
	require.Error(t, err)

	// The dispatcher leaves state changes to the orchestrator here.
	stored, _ := f.queue.Get("m1")
	require.Equal(t, domain.MessageStatusPending, stored.Status)
}

func TestDispatchInApp_DryRunSkipsRelay(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)
	f.d.dryRun = true

	msg := pendingMessage("m1", domain.MessageTypeInApp)
	msg.RecipientID = "user-1"

	res, err := f.d.Dispatch(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Empty(t, f.relay.calls)
}

func TestDispatch_UnknownTypeRejected(t *testing.T) {
	t.Parallel()
	f := newDispatcherFixture(nil)

	_, err := f.d.Dispatch(context.Background(), pendingMessage("m1", domain.MessageType("carrier_pigeon")))
	require.Error(t, err)
}
