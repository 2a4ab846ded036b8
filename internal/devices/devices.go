// Package devices lists the local capture devices and turns them into decoder players.
package devices

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
)

// Mode is one format/size/rate combination offered by a camera.
type Mode struct {
	PixFmt string // v4l2/dshow name: mjpeg, h264, yuyv422, ...
	Width  int
	Height int
	Rate   float64
}

func (m Mode) String() string {
	return fmt.Sprintf("%s %dx%d @ %g fps", m.PixFmt, m.Width, m.Height, m.Rate)
}

// Camera is a capture device and the modes it reported.
type Camera struct {
	Name   string
	Device string // device path on Linux, device name on Windows
	Format string // libav input format: v4l2 or dshow
	Modes  []Mode
}

// FFmpegPath is the executable used to list dshow devices.
var FFmpegPath = "ffmpeg"

// List finds the cameras of this machine. Platforms without a probe return nothing.
func List(ctx context.Context) ([]Camera, error) {
	switch runtime.GOOS {
	case "linux":
		return listV4L2(ctx)
	case "windows":
		return listDshow(ctx)
	default:
		return nil, nil
	}
}

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := hiddenCommand(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := assign(cmd); err != nil {
		logging.WarningLogger.Printf("%v", err)
	}
	err := cmd.Wait()
	return out.Bytes(), err
}

func listV4L2(ctx context.Context) ([]Camera, error) {
	out, err := run(ctx, "v4l2-ctl", "--list-devices")
	if err != nil {
		return nil, fmt.Errorf("v4l2-ctl --list-devices: %w", err)
	}
	cameras := parseV4L2Devices(out)
	for i := range cameras {
		formats, err := run(ctx, "v4l2-ctl", "-d", cameras[i].Device, "--list-formats-ext")
		if err != nil {
			logging.WarningLogger.Printf("probing %s: %v", cameras[i].Device, err)
			continue
		}
		cameras[i].Modes = parseV4L2Formats(formats)
	}
	return cameras, nil
}

func listDshow(ctx context.Context) ([]Camera, error) {
	// ffmpeg exits with an error because "dummy" is not a device; the listing is still printed
	out, _ := run(ctx, FFmpegPath, "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy")
	var cameras []Camera
	for _, name := range parseDshowDevices(out) {
		options, _ := run(ctx, FFmpegPath, "-hide_banner", "-f", "dshow", "-list_options", "true", "-i", "video="+name)
		cameras = append(cameras, Camera{Name: name, Device: name, Format: "dshow", Modes: parseDshowOptions(options)})
	}
	return cameras, nil
}

// parseV4L2Devices reads "v4l2-ctl --list-devices": a camera name line followed by
// indented device nodes. Only the first /dev/videoN of each camera is kept.
func parseV4L2Devices(out []byte) []Camera {
	var (
		cameras []Camera
		current string
	)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") && !strings.HasPrefix(line, " ") {
			if idx := strings.Index(line, " ("); idx != -1 {
				current = strings.TrimSpace(line[:idx])
			} else {
				current = strings.TrimRight(strings.TrimSpace(line), ":")
			}
			continue
		}
		node := strings.TrimSpace(line)
		if strings.HasPrefix(node, "/dev/video") && current != "" {
			cameras = append(cameras, Camera{Name: current, Device: node, Format: "v4l2"})
			current = ""
		}
	}
	return cameras
}

var (
	v4l2FormatRe = regexp.MustCompile(`'(MJPG|YUYV|H264|NV12|RGB3|BGR3|UYVY|GREY|Y16 )'`)
	v4l2SizeRe   = regexp.MustCompile(`Size:\s+Discrete\s+(\d+)x(\d+)`)
	v4l2RateRe   = regexp.MustCompile(`\(([0-9.]+)\s+fps\)`)

	v4l2PixFmts = map[string]string{
		"MJPG": "mjpeg",
		"H264": "h264",
		"YUYV": "yuyv422",
		"NV12": "nv12",
		"RGB3": "rgb24",
		"BGR3": "bgr24",
		"UYVY": "uyvy422",
		"GREY": "gray",
		"Y16 ": "gray16le",
	}
)

// parseV4L2Formats reads "v4l2-ctl --list-formats-ext" and keeps the highest rate
// of every format and size.
func parseV4L2Formats(out []byte) []Mode {
	var (
		modes  []Mode
		pixFmt string
		w, h   int
	)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if m := v4l2FormatRe.FindStringSubmatch(line); m != nil {
			pixFmt, w, h = v4l2PixFmts[m[1]], 0, 0
			continue
		}
		if m := v4l2SizeRe.FindStringSubmatch(line); m != nil {
			w, _ = strconv.Atoi(m[1])
			h, _ = strconv.Atoi(m[2])
			continue
		}
		m := v4l2RateRe.FindStringSubmatch(line)
		if m == nil || pixFmt == "" || w == 0 {
			continue
		}
		rate, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		modes = addMode(modes, Mode{PixFmt: pixFmt, Width: w, Height: h, Rate: rate})
	}
	return modes
}

func addMode(modes []Mode, mode Mode) []Mode {
	for i := range modes {
		if modes[i].PixFmt == mode.PixFmt && modes[i].Width == mode.Width && modes[i].Height == mode.Height {
			if mode.Rate > modes[i].Rate {
				modes[i].Rate = mode.Rate
			}
			return modes
		}
	}
	return append(modes, mode)
}

// parseDshowDevices reads the video device names of "ffmpeg -f dshow -list_devices true".
func parseDshowDevices(out []byte) []string {
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "(video)") {
			continue
		}
		start, end := strings.Index(line, `"`), strings.LastIndex(line, `"`)
		if start != -1 && end > start {
			names = append(names, line[start+1:end])
		}
	}
	return names
}

var (
	dshowMaxRe    = regexp.MustCompile(`max\s+s=(\d+)x(\d+)\s+fps=([0-9.]+)`)
	dshowSingleRe = regexp.MustCompile(`s=(\d+)x(\d+)\s+fps=([0-9.]+)`)
	dshowFormatRe = regexp.MustCompile(`(?:pixel_format|vcodec)=(\w+)`)
)

// parseDshowOptions reads "ffmpeg -f dshow -list_options true", keeping the maximum
// size and rate of every line.
func parseDshowOptions(out []byte) []Mode {
	var modes []Mode
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		f := dshowFormatRe.FindStringSubmatch(line)
		if f == nil {
			continue
		}
		m := dshowMaxRe.FindStringSubmatch(line)
		if m == nil {
			m = dshowSingleRe.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		rate, _ := strconv.ParseFloat(m[3], 64)
		modes = addMode(modes, Mode{PixFmt: f[1], Width: w, Height: h, Rate: rate})
	}
	return modes
}

// Best picks the mode to capture with: at most 1920x1080, then the usual HD profiles,
// then the highest rate and size. Compressed modes win because they fit USB bandwidth.
func (c Camera) Best() (Mode, bool) {
	if len(c.Modes) == 0 {
		return Mode{}, false
	}
	var candidates []Mode
	for _, m := range c.Modes {
		if m.Width <= 1920 && m.Height <= 1080 {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		candidates = c.Modes
	}
	best := candidates[0]
	for _, m := range candidates[1:] {
		if preferred(m, best) {
			best = m
		}
	}
	return best, true
}

func preferred(candidate, current Mode) bool {
	if a, b := formatPriority(candidate.PixFmt), formatPriority(current.PixFmt); a != b {
		return a > b
	}
	if a, b := profilePriority(candidate), profilePriority(current); a != b {
		return a > b
	}
	if candidate.Rate != current.Rate {
		return candidate.Rate > current.Rate
	}
	return candidate.Width*candidate.Height > current.Width*current.Height
}

func formatPriority(pixFmt string) int {
	switch pixFmt {
	case "mjpeg":
		return 2
	case "h264":
		return 0
	default:
		return 1
	}
}

func profilePriority(m Mode) int {
	fullHD := m.Width == 1920 && m.Height == 1080
	hd := m.Width == 1280 && m.Height == 720
	switch {
	case fullHD && m.Rate >= 59:
		return 4
	case hd && m.Rate >= 59:
		return 3
	case fullHD && m.Rate >= 29:
		return 2
	case hd && m.Rate >= 29:
		return 1
	default:
		return 0
	}
}

// PlayerConfig builds a decoder player for the camera's best mode.
func (c Camera) PlayerConfig(name string) config.PlayerConfig {
	p := config.PlayerConfig{
		Name:     name,
		Backend:  "decoder",
		Decoder:  config.DecoderConfig{Input: c.Device, Format: c.Format, Options: map[string]string{}},
		Filename: name + "_" + config.IncrementPlaceholder,
	}
	if c.Format == "dshow" {
		p.Decoder.Input = "video=" + c.Device
	}
	mode, ok := c.Best()
	if !ok {
		return p
	}
	p.Play = media.Metadata{Width: mode.Width, Height: mode.Height, Rate: mode.Rate}
	switch {
	case c.Format == "dshow" && (mode.PixFmt == "mjpeg" || mode.PixFmt == "h264"):
		p.Decoder.Options["vcodec"] = mode.PixFmt
	case c.Format == "dshow":
		p.Decoder.Options["pixel_format"] = mode.PixFmt
	default:
		p.Decoder.Options["input_format"] = mode.PixFmt
	}
	return p
}
