package session

import "time"

// Status is the call session status. All display booleans derive from
// this single tagged value plus the talk-mode/mute/speaking flags; the
// mutually exclusive combinations a boolean encoding could reach do not
// exist here.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusConnecting:
		return "CONNECTING"
	case StatusConnected:
		return "CONNECTED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TalkMode selects how the user's microphone is gated during a call.
type TalkMode int

const (
	// ModeContinuous keeps the microphone open for the whole call.
	ModeContinuous TalkMode = iota
	// ModePushToTalk keeps the call muted except while the user holds
	// the talk control.
	ModePushToTalk
)

func (m TalkMode) String() string {
	switch m {
	case ModeContinuous:
		return "continuous"
	case ModePushToTalk:
		return "push_to_talk"
	default:
		return "unknown"
	}
}

// ParseTalkMode maps a config string to a TalkMode, defaulting to
// continuous.
func ParseTalkMode(v string) TalkMode {
	switch v {
	case "push_to_talk", "ptt":
		return ModePushToTalk
	default:
		return ModeContinuous
	}
}

// StateChange represents a status transition event.
type StateChange struct {
	FromStatus Status
	ToStatus   Status
	Timestamp  time.Time
	Reason     string
}

// StateListener observes session status changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// validTransitions defines the status machine. call_ended may arrive at
// any time, so every status can fall back to Idle.
var validTransitions = map[Status][]Status{
	StatusIdle:       {StatusConnecting},
	StatusConnecting: {StatusConnected, StatusError, StatusIdle},
	StatusConnected:  {StatusIdle, StatusError},
	StatusError:      {StatusConnecting, StatusIdle},
}

func transitionValid(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError represents an invalid status transition attempt.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid status transition from " + e.From.String() + " to " + e.To.String()
}
