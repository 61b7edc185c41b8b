package ws

import "fmt"

// ConnState is the lifecycle state of one peer connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateMessageReceived
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateMessageReceived:
		return "message_received"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConnEvent is an input to the connection state machine.
type ConnEvent int

const (
	EventAuthenticated ConnEvent = iota
	EventMessage
	EventHandled
	EventClose
)

func (e ConnEvent) String() string {
	switch e {
	case EventAuthenticated:
		return "authenticated"
	case EventMessage:
		return "message"
	case EventHandled:
		return "handled"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Transition applies one event to the state machine. Transitions outside the
// table are rejected with an error; the caller closes the connection instead
// of letting an invalid state change pass silently.
//
//	connecting        --authenticated--> connected
//	connected         --message-------> message_received
//	message_received  --handled-------> connected
//	any live state    --close---------> disconnected
func Transition(current ConnState, event ConnEvent) (ConnState, error) {
	switch {
	case current == StateConnecting && event == EventAuthenticated:
		return StateConnected, nil
	case current == StateConnected && event == EventMessage:
		return StateMessageReceived, nil
	case current == StateMessageReceived && event == EventHandled:
		return StateConnected, nil
	case current != StateDisconnected && event == EventClose:
		return StateDisconnected, nil
	default:
		return current, fmt.Errorf("invalid transition: %s on %s", event, current)
	}
}
