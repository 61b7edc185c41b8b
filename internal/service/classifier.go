package service

import (
	"context"
	"errors"
	"net"
	"net/textproto"

	"github.com/webstore4eto/messaging/internal/port"
)

// ErrorType is the closed taxonomy of delivery failures.
type ErrorType string

const (
	ErrorTypeNetwork              ErrorType = "network_error"
	ErrorTypeSmtp                 ErrorType = "smtp_error"
	ErrorTypeAuth                 ErrorType = "auth_error"
	ErrorTypeRateLimit            ErrorType = "rate_limit"
	ErrorTypeInvalidRecipient     ErrorType = "invalid_recipient"
	ErrorTypeInvalidInput         ErrorType = "invalid_input"
	ErrorTypeSubscriptionNotFound ErrorType = "subscription_not_found"
	ErrorTypeExternalServerError  ErrorType = "external_server_error"
)

// Classification is the verdict on one provider failure.
type Classification struct {
	Type  ErrorType
	Retry bool
}

// Classify maps a provider failure onto the taxonomy. The table is total:
// every error lands somewhere, and unclassifiable failures default to a
// non-retryable external server error.
//
// SMTP reply codes arrive as *textproto.Error (net/smtp), push-service and
// relay statuses as *port.ProviderStatusError, connection problems as net
// errors or context deadline expiry.
func Classify(err error) Classification {
	var smtpErr *textproto.Error
	var statusErr *port.ProviderStatusError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Type: ErrorTypeNetwork, Retry: true}

	case errors.As(err, &netErr):
		return Classification{Type: ErrorTypeNetwork, Retry: true}

	case errors.As(err, &smtpErr):
		switch smtpErr.Code {
		case 421, 450, 451:
			return Classification{Type: ErrorTypeRateLimit, Retry: true}
		case 511, 535:
			return Classification{Type: ErrorTypeAuth, Retry: false}
		case 550, 553:
			return Classification{Type: ErrorTypeInvalidRecipient, Retry: false}
		default:
			return Classification{Type: ErrorTypeSmtp, Retry: true}
		}

	case errors.As(err, &statusErr):
		switch statusErr.StatusCode {
		case 410:
			return Classification{Type: ErrorTypeSubscriptionNotFound, Retry: false}
		case 400, 403, 404, 413:
			return Classification{Type: ErrorTypeInvalidInput, Retry: false}
		default:
			return Classification{Type: ErrorTypeExternalServerError, Retry: true}
		}

	default:
		return Classification{Type: ErrorTypeExternalServerError, Retry: false}
	}
}
