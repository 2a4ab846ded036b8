package recording

import "github.com/owlcms/recorder/internal/media"

// Options is everything needed to open an output file.
type Options struct {
	Path      string
	Container string
	Codec     string
	// Input is the format and geometry of the frames passed to WriteFrame.
	Input media.Metadata
	// Output is the encoded format, geometry and nominal rate.
	Output       media.Metadata
	Rate         media.Rational
	CodecOptions map[string]string
}

// Encoder writes frames to one output file. It is used from a single goroutine.
type Encoder interface {
	// WriteFrame encodes f at pts seconds from the start of the recording.
	WriteFrame(f *media.Frame, pts float64) error
	// BytesWritten returns the size of the output so far.
	BytesWritten() int64
	Close() error
}

// EncoderFactory opens encoders.
type EncoderFactory interface {
	Open(opts Options) (Encoder, error)
}

// EncoderFunc adapts a function to EncoderFactory.
type EncoderFunc func(opts Options) (Encoder, error)

func (f EncoderFunc) Open(opts Options) (Encoder, error) {
	return f(opts)
}
