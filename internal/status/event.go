package status

import (
	"fmt"
	"strings"
	"time"
)

// Severity of a status event
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "debug":
		*s = Debug
	case "info":
		*s = Info
	case "warning", "warn":
		*s = Warning
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Kind classifies an event. Failure kinds name what went wrong, the others report progress.
type Kind string

const (
	BackendOpenFailed      Kind = "BackendOpenFailed"
	FirstFrameTimeout      Kind = "FirstFrameTimeout"
	MidStreamReadError     Kind = "MidStreamReadError"
	EncoderOpenFailed      Kind = "EncoderOpenFailed"
	FrameWriteFailed       Kind = "FrameWriteFailed"
	InvalidStateTransition Kind = "InvalidStateTransition"
	RateUnavailable        Kind = "RateUnavailable"
	InternalError          Kind = "InternalError"

	PlayStarting   Kind = "PlayStarting"
	Playing        Kind = "Playing"
	PlayStopping   Kind = "PlayStopping"
	PlayStopped    Kind = "PlayStopped"
	EndOfStream    Kind = "EndOfStream"
	RecordStarting Kind = "RecordStarting"
	Recording      Kind = "Recording"
	RecordStopping Kind = "RecordStopping"
	RecordStopped  Kind = "RecordStopped"
)

// Event is one status or error report from a player.
type Event struct {
	Time       time.Time `json:"time"`
	Severity   Severity  `json:"severity"`
	Controller string    `json:"controller"`
	Player     string    `json:"player"`
	Session    string    `json:"session,omitempty"`
	Kind       Kind      `json:"kind"`
	Phase      string    `json:"phase,omitempty"`
	Message    string    `json:"message"`
}

func (e Event) String() string {
	if e.Phase != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Player, e.Kind, e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Player, e.Kind, e.Message)
}
