package player

import "fmt"

// PlayState is the lifecycle of a capture session.
type PlayState int

const (
	PlayNone PlayState = iota
	PlayStarting
	PlayPlaying
	PlayStopping
)

func (s PlayState) String() string {
	switch s {
	case PlayNone:
		return "none"
	case PlayStarting:
		return "starting"
	case PlayPlaying:
		return "playing"
	case PlayStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s PlayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PlayState) UnmarshalText(text []byte) error {
	for _, candidate := range []PlayState{PlayNone, PlayStarting, PlayPlaying, PlayStopping} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown play state %q", text)
}

// RecordState is the lifecycle of a recording session.
type RecordState int

const (
	RecordNone RecordState = iota
	RecordStarting
	RecordRecording
	RecordStopping
)

func (s RecordState) String() string {
	switch s {
	case RecordNone:
		return "none"
	case RecordStarting:
		return "starting"
	case RecordRecording:
		return "recording"
	case RecordStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s RecordState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RecordState) UnmarshalText(text []byte) error {
	for _, candidate := range []RecordState{RecordNone, RecordStarting, RecordRecording, RecordStopping} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown record state %q", text)
}
