package session

// Signal is a discrete feedback event for the presentation layer.
type Signal int

// Feedback signals.
const (
	SignalAccepted Signal = iota
	SignalRejected
	SignalCompleted
	SignalTimeWarning
	SignalSessionEnded
)

func (s Signal) String() string {
	switch s {
	case SignalAccepted:
		return "accepted"
	case SignalRejected:
		return "rejected"
	case SignalCompleted:
		return "completed"
	case SignalTimeWarning:
		return "time-warning"
	case SignalSessionEnded:
		return "session-ended"
	default:
		return "unknown"
	}
}

// Sink receives feedback signals. The controller never waits on what a sink does with them.
type Sink interface {
	Signal(Signal)
}

type discardSink struct{}

func (discardSink) Signal(Signal) {}
