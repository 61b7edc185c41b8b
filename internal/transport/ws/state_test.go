package ws

import "testing"

func TestTransition_HappyPath(t *testing.T) {
	t.Parallel()

	st := StateConnecting
	var err error

	if st, err = Transition(st, EventAuthenticated); err != nil || st != StateConnected {
		t.Fatalf("authenticate: got state %v, err %v", st, err)
	}
	if st, err = Transition(st, EventMessage); err != nil || st != StateMessageReceived {
		t.Fatalf("message: got state %v, err %v", st, err)
	}
	if st, err = Transition(st, EventHandled); err != nil || st != StateConnected {
		t.Fatalf("handled: got state %v, err %v", st, err)
	}
	if st, err = Transition(st, EventClose); err != nil || st != StateDisconnected {
		t.Fatalf("close: got state %v, err %v", st, err)
	}
}

func TestTransition_CloseFromAnyLiveState(t *testing.T) {
	t.Parallel()

	for _, st := range []ConnState{StateConnecting, StateConnected, StateMessageReceived} {
		next, err := Transition(st, EventClose)
		if err != nil || next != StateDisconnected {
			t.Errorf("close from %v: got %v, err %v", st, next, err)
		}
	}
}

func TestTransition_RejectsUndefined(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state ConnState
		event ConnEvent
	}{
		{StateConnecting, EventMessage},
		{StateConnecting, EventHandled},
		{StateConnected, EventAuthenticated},
		{StateConnected, EventHandled},
		{StateMessageReceived, EventMessage},
		{StateMessageReceived, EventAuthenticated},
		{StateDisconnected, EventAuthenticated},
		{StateDisconnected, EventMessage},
		{StateDisconnected, EventClose},
	}
	for _, tc := range cases {
		next, err := Transition(tc.state, tc.event)
		if err == nil {
			t.Errorf("%v on %v: expected rejection", tc.event, tc.state)
		}
		if next != tc.state {
			t.Errorf("%v on %v: state moved to %v on rejection", tc.event, tc.state, next)
		}
	}
}
