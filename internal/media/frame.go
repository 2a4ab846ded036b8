package media

import "fmt"

// Frame is one captured image. Frames are never modified after a source returns them,
// so the display sink and the record queue may share the same value.
type Frame struct {
	Data      []byte
	Format    PixelFormat
	Width     int
	Height    int
	Timestamp float64 // seconds, on the source clock
	Seq       uint64
}

// Metadata describes a stream: pixel format, geometry and frame rate.
// Zero fields mean "not specified".
type Metadata struct {
	Format PixelFormat `json:"pixFmt" toml:"pixFmt"`
	Width  int         `json:"width" toml:"width"`
	Height int         `json:"height" toml:"height"`
	Rate   float64     `json:"rate" toml:"rate"`
}

// Metadata returns the frame geometry and format together with rate.
func (f *Frame) Metadata(rate float64) Metadata {
	return Metadata{Format: f.Format, Width: f.Width, Height: f.Height, Rate: rate}
}

// Or returns m with every unset field taken from fallback.
func (m Metadata) Or(fallback Metadata) Metadata {
	if m.Format == "" {
		m.Format = fallback.Format
	}
	if m.Width == 0 {
		m.Width = fallback.Width
	}
	if m.Height == 0 {
		m.Height = fallback.Height
	}
	if m.Rate == 0 {
		m.Rate = fallback.Rate
	}
	return m
}

// BytesPerSecond estimates the raw data rate of the stream, 0 when unknown.
func (m Metadata) BytesPerSecond() float64 {
	if m.Rate <= 0 {
		return 0
	}
	size, err := ImageSize(m.Format, m.Width, m.Height)
	if err != nil {
		return 0
	}
	return float64(size) * m.Rate
}

func (m Metadata) String() string {
	return fmt.Sprintf("%s %dx%d @ %.3f fps", m.Format, m.Width, m.Height, m.Rate)
}
