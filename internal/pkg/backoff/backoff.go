// Package backoff computes the retry delay schedule for failed deliveries.
package backoff

import "time"

// Policy is an exponential backoff with a hard cap. The zero value is not
// usable; construct with Default or explicit constants from configuration.
type Policy struct {
	Initial    time.Duration
	Multiplier int
	Max        time.Duration
}

// Default matches the production schedule: 5, 10, 20, 40, 80, 120, 120... minutes.
func Default() Policy {
	return Policy{
		Initial:    5 * time.Minute,
		Multiplier: 2,
		Max:        120 * time.Minute,
	}
}

// Delay returns the wait before attempt number attempt (1-based) is retried.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= time.Duration(p.Multiplier)
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}
