package player

import (
	"fmt"

	"github.com/owlcms/recorder/internal/status"
)

// Error is a failure of a capture or recording session.
type Error struct {
	Kind       status.Kind
	Controller string
	Phase      string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s during %s: %v", e.Controller, e.Kind, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
