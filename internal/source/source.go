package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/owlcms/recorder/internal/media"
)

var (
	// ErrNoFrame means no frame is available yet; the caller should retry.
	ErrNoFrame = errors.New("no frame available")
	// ErrEndOfStream means the source will not produce any more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrClosed is returned by a source that was interrupted or closed.
	ErrClosed = errors.New("source closed")
)

// FrameSource captures frames from one backend.
//
// Open and ReadFrame are called from a single capture goroutine. ReadFrame blocks until a
// frame is available, returns ErrNoFrame when the backend has nothing to give yet and
// ErrEndOfStream at the end of the input. Implementations check ctx on every iteration;
// Interrupt may be called from any goroutine and makes a blocked ReadFrame return.
type FrameSource interface {
	Open(ctx context.Context, requested media.Metadata) (media.Metadata, error)
	ReadFrame(ctx context.Context) (*media.Frame, error)
	Interrupt()
	Close() error
}

// Kind identifies a capture backend.
type Kind string

const (
	KindDecoder       Kind = "decoder"
	KindGrabber       Kind = "grabber"
	KindMachineVision Kind = "machinevision"
)

// ParseKind accepts the backend names used in the configuration file.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "decoder", "ffmpeg", "webcam":
		return KindDecoder, nil
	case "grabber", "rtv":
		return KindGrabber, nil
	case "machinevision", "ptgray", "camera":
		return KindMachineVision, nil
	default:
		return "", fmt.Errorf("unknown backend %q", s)
	}
}
