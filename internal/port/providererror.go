package port

import "fmt"

// ProviderStatusError is a non-success HTTP status returned by an external
// delivery provider (push service, internal relay). It exists so callers can
// classify provider rejections without depending on the provider adapter.
type ProviderStatusError struct {
	StatusCode int
	Body       string
}

func (e *ProviderStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
