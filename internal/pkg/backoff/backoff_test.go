package backoff

import (
	"testing"
	"time"
)

func TestDelay_DefaultSchedule(t *testing.T) {
	t.Parallel()

	p := Default()
	want := []time.Duration{
		5 * time.Minute,
		10 * time.Minute,
		20 * time.Minute,
		40 * time.Minute,
		80 * time.Minute,
		120 * time.Minute,
		120 * time.Minute,
		120 * time.Minute,
	}
	for i, w := range want {
		attempt := i + 1
		if got := p.Delay(attempt); got != w {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, w)
		}
	}
}

func TestDelay_AttemptBelowOne(t *testing.T) {
	t.Parallel()

	p := Default()
	if got := p.Delay(0); got != 5*time.Minute {
		t.Errorf("attempt 0: got %v, want %v", got, 5*time.Minute)
	}
	if got := p.Delay(-3); got != 5*time.Minute {
		t.Errorf("attempt -3: got %v, want %v", got, 5*time.Minute)
	}
}

func TestDelay_CapBelowInitial(t *testing.T) {
	t.Parallel()

	p := Policy{Initial: 10 * time.Second, Multiplier: 3, Max: 7 * time.Second}
	if got := p.Delay(1); got != 7*time.Second {
		t.Errorf("got %v, want cap %v", got, 7*time.Second)
	}
}
