package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"

	"github.com/webstore4eto/messaging/internal/port"
)

type fakeNetError struct{ msg string }

func (e *fakeNetError) Error() string   { return e.msg }
func (e *fakeNetError) Timeout() bool   { return true }
func (e *fakeNetError) Temporary() bool { return true }

var _ net.Error = (*fakeNetError)(nil)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		wantType  ErrorType
		wantRetry bool
	}{
		{
			name:      "context deadline",
			err:       context.DeadlineExceeded,
			wantType:  ErrorTypeNetwork,
			wantRetry: true,
		},
		{
			name:      "wrapped deadline",
			err:       fmt.Errorf("send mail: %w", context.DeadlineExceeded),
			wantType:  ErrorTypeNetwork,
			wantRetry: true,
		},
		{
			name:      "net error",
			err:       &fakeNetError{msg: "connection refused"},
			wantType:  ErrorTypeNetwork,
			wantRetry: true,
		},
		{
			name:      "dns error",
			err:       &net.DNSError{Err: "no such host", Name: "smtp.example.com"},
			wantType:  ErrorTypeNetwork,
			wantRetry: true,
		},
		{
			name:      "smtp 421 service unavailable",
			err:       &textproto.Error{Code: 421, Msg: "service not available"},
			wantType:  ErrorTypeRateLimit,
			wantRetry: true,
		},
		{
			name:      "smtp 450 mailbox busy",
			err:       &textproto.Error{Code: 450, Msg: "mailbox busy"},
			wantType:  ErrorTypeRateLimit,
			wantRetry: true,
		},
		{
			name:      "smtp 451 local error",
			err:       &textproto.Error{Code: 451, Msg: "local error in processing"},
			wantType:  ErrorTypeRateLimit,
			wantRetry: true,
		},
		{
			name:      "smtp 511 bad auth",
			err:       &textproto.Error{Code: 511, Msg: "authentication failed"},
			wantType:  ErrorTypeAuth,
			wantRetry: false,
		},
		{
			name:      "smtp 535 credentials rejected",
			err:       &textproto.Error{Code: 535, Msg: "credentials rejected"},
			wantType:  ErrorTypeAuth,
			wantRetry: false,
		},
		{
			name:      "smtp 550 no such user",
			err:       &textproto.Error{Code: 550, Msg: "no such user"},
			wantType:  ErrorTypeInvalidRecipient,
			wantRetry: false,
		},
		{
			name:      "smtp 553 bad mailbox name",
			err:       &textproto.Error{Code: 553, Msg: "mailbox name not allowed"},
			wantType:  ErrorTypeInvalidRecipient,
			wantRetry: false,
		},
		{
			name:      "smtp other code",
			err:       &textproto.Error{Code: 452, Msg: "insufficient storage"},
			wantType:  ErrorTypeSmtp,
			wantRetry: true,
		},
		{
			name:      "provider 410 gone",
			err:       &port.ProviderStatusError{StatusCode: 410},
			wantType:  ErrorTypeSubscriptionNotFound,
			wantRetry: false,
		},
		{
			name:      "provider 400",
			err:       &port.ProviderStatusError{StatusCode: 400},
			wantType:  ErrorTypeInvalidInput,
			wantRetry: false,
		},
		{
			name:      "provider 403",
			err:       &port.ProviderStatusError{StatusCode: 403},
			wantType:  ErrorTypeInvalidInput,
			wantRetry: false,
		},
		{
			name:      "provider 404",
			err:       &port.ProviderStatusError{StatusCode: 404},
			wantType:  ErrorTypeInvalidInput,
			wantRetry: false,
		},
		{
			name:      "provider 413 too large",
			err:       &port.ProviderStatusError{StatusCode: 413},
			wantType:  ErrorTypeInvalidInput,
			wantRetry: false,
		},
		{
			name:      "provider 500",
			err:       &port.ProviderStatusError{StatusCode: 500},
			wantType:  ErrorTypeExternalServerError,
			wantRetry: true,
		},
		{
			name:      "provider 503 wrapped",
			err:       fmt.Errorf("push endpoint: %w", &port.ProviderStatusError{StatusCode: 503}),
			wantType:  ErrorTypeExternalServerError,
			wantRetry: true,
		},
		{
			name:      "unknown error",
			err:       errors.New("something odd"),
			wantType:  ErrorTypeExternalServerError,
			wantRetry: false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tc.err)
			if got.Type != tc.wantType {
				t.Errorf("type: got %q, want %q", got.Type, tc.wantType)
			}
			if got.Retry != tc.wantRetry {
				t.Errorf("retry: got %v, want %v", got.Retry, tc.wantRetry)
			}
		})
	}
}
