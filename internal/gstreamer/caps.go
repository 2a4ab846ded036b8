package gstreamer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/owlcms/recorder/internal/media"
)

// capsFormat is how a pixel format is spelled in GStreamer caps.
type capsFormat struct {
	media  string // caps media type
	format string
}

var capsFormats = map[media.PixelFormat]capsFormat{
	media.Gray8:      {"video/x-raw", "GRAY8"},
	media.Gray16LE:   {"video/x-raw", "GRAY16_LE"},
	media.RGB24:      {"video/x-raw", "RGB"},
	media.BGR24:      {"video/x-raw", "BGR"},
	media.RGBA:       {"video/x-raw", "RGBA"},
	media.BGRA:       {"video/x-raw", "BGRA"},
	media.YUV420P:    {"video/x-raw", "I420"},
	media.YUYV422:    {"video/x-raw", "YUY2"},
	media.BayerRGGB8: {"video/x-bayer", "rggb"},
}

// formatTable lists the pixel formats a backend accepts; the first one is the default.
type formatTable []media.PixelFormat

var (
	grabberFormats       = formatTable{media.RGB24, media.Gray8, media.BGR24, media.RGBA, media.YUV420P}
	machineVisionFormats = formatTable{media.Gray8, media.Gray16LE, media.RGB24, media.BGR24, media.BayerRGGB8}
)

// choose returns the first non-empty candidate, checked against the table.
func (t formatTable) choose(candidates ...media.PixelFormat) (media.PixelFormat, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, f := range t {
			if f == c {
				return f, nil
			}
		}
		return "", fmt.Errorf("pixel format %q not supported, use one of %v", c, t)
	}
	return t[0], nil
}

// capsString builds the caps that fix the output of a pipeline. Zero fields are left free.
func capsString(m media.Metadata) (string, error) {
	cf, ok := capsFormats[m.Format]
	if !ok {
		return "", fmt.Errorf("pixel format %q has no caps", m.Format)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s,format=%s", cf.media, cf.format)
	if m.Width > 0 && m.Height > 0 {
		fmt.Fprintf(&b, ",width=%d,height=%d", m.Width, m.Height)
	}
	if m.Rate > 0 {
		r := media.RateToRational(m.Rate)
		fmt.Fprintf(&b, ",framerate=%d/%d", r.Num, r.Den)
	}
	return b.String(), nil
}

var (
	capsFormatRe    = regexp.MustCompile(`format=\(string\)"?([A-Za-z0-9_]+)`)
	capsWidthRe     = regexp.MustCompile(`width=\(int\)(\d+)`)
	capsHeightRe    = regexp.MustCompile(`height=\(int\)(\d+)`)
	capsFramerateRe = regexp.MustCompile(`framerate=\(fraction\)(\d+)/(\d+)`)
)

// parseCaps reads the negotiated format, size and rate from a caps string such as
// "video/x-raw, format=(string)GRAY8, width=(int)640, height=(int)480, framerate=(fraction)30/1".
func parseCaps(s string) (media.Metadata, error) {
	var m media.Metadata
	mediaType, _, _ := strings.Cut(s, ",")
	mediaType = strings.TrimSpace(mediaType)

	match := capsFormatRe.FindStringSubmatch(s)
	if match == nil {
		return m, fmt.Errorf("no format in caps %q", s)
	}
	for f, cf := range capsFormats {
		if cf.media == mediaType && cf.format == match[1] {
			m.Format = f
			break
		}
	}
	if m.Format == "" {
		return m, fmt.Errorf("unsupported caps format %s %s", mediaType, match[1])
	}

	if match = capsWidthRe.FindStringSubmatch(s); match != nil {
		m.Width, _ = strconv.Atoi(match[1])
	}
	if match = capsHeightRe.FindStringSubmatch(s); match != nil {
		m.Height, _ = strconv.Atoi(match[1])
	}
	if m.Width <= 0 || m.Height <= 0 {
		return m, fmt.Errorf("no size in caps %q", s)
	}
	if match = capsFramerateRe.FindStringSubmatch(s); match != nil {
		num, _ := strconv.Atoi(match[1])
		den, _ := strconv.Atoi(match[2])
		if num > 0 && den > 0 {
			m.Rate = float64(num) / float64(den)
		}
	}
	return m, nil
}

var bytesPerPixel = map[media.PixelFormat]int{
	media.Gray8:      1,
	media.BayerRGGB8: 1,
	media.Gray16LE:   2,
	media.YUYV422:    2,
	media.RGB24:      3,
	media.BGR24:      3,
	media.RGBA:       4,
	media.BGRA:       4,
}

// pack removes the row padding GStreamer adds to align rows on 4 bytes.
// data is returned as is when it is already tightly packed.
func pack(data []byte, m media.Metadata) ([]byte, error) {
	size, err := media.ImageSize(m.Format, m.Width, m.Height)
	if err != nil {
		return nil, err
	}
	if len(data) == size {
		return data, nil
	}
	bpp, ok := bytesPerPixel[m.Format]
	if !ok {
		return nil, fmt.Errorf("%s buffer of %d bytes, expected %d", m.Format, len(data), size)
	}
	row := m.Width * bpp
	stride := (row + 3) &^ 3
	if len(data) < stride*(m.Height-1)+row {
		return nil, fmt.Errorf("%s buffer of %d bytes, expected %d", m.Format, len(data), size)
	}
	out := make([]byte, size)
	for y := 0; y < m.Height; y++ {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out, nil
}
