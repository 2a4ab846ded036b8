package config

import (
	"fmt"
	"strings"

	"github.com/owlcms/recorder/internal/media"
)

// IncrementPlaceholder is replaced by the increment counter in output file names.
const IncrementPlaceholder = "{}"

// PlayerConfig describes one capture source and where its recordings go.
type PlayerConfig struct {
	Name          string              `toml:"name"`
	Backend       string              `toml:"backend"`
	Decoder       DecoderConfig       `toml:"decoder"`
	Grabber       GrabberConfig       `toml:"grabber"`
	MachineVision MachineVisionConfig `toml:"machineVision"`
	Play          media.Metadata      `toml:"play"`
	Record        RecordConfig        `toml:"record"`
	OutputDir     string              `toml:"outputDir"`
	Filename      string              `toml:"filename"`
	Extension     string              `toml:"extension"`
	Increment     int                 `toml:"increment"`
}

// DecoderConfig opens a file, a URL or a local device through libav.
type DecoderConfig struct {
	Input   string            `toml:"input"`
	Format  string            `toml:"format"` // input format such as v4l2 or dshow, empty to probe
	Options map[string]string `toml:"options"`
}

// GrabberConfig reaches one channel of a remote frame grabber.
type GrabberConfig struct {
	Address string            `toml:"address"`
	Port    int               `toml:"port"`
	Channel int               `toml:"channel"`
	PixFmt  media.PixelFormat `toml:"pixFmt"`
}

// MachineVisionConfig selects a machine vision camera by serial number.
type MachineVisionConfig struct {
	Serial string            `toml:"serial"`
	PixFmt media.PixelFormat `toml:"pixFmt"`
}

// RecordConfig holds the requested output parameters. Zero values follow the input.
type RecordConfig struct {
	PixFmt    media.PixelFormat `toml:"pixFmt"`
	Width     int               `toml:"width"`
	Height    int               `toml:"height"`
	Rate      float64           `toml:"rate"`
	Codec     string            `toml:"codec"`
	Container string            `toml:"format"`
	Options   map[string]string `toml:"options"`
}

// Metadata returns the requested output stream parameters.
func (r RecordConfig) Metadata() media.Metadata {
	return media.Metadata{Format: r.PixFmt, Width: r.Width, Height: r.Height, Rate: r.Rate}
}

// HasPlaceholder reports whether the file name template uses the increment counter.
func (p PlayerConfig) HasPlaceholder() bool {
	return strings.Contains(p.Filename, IncrementPlaceholder)
}

// Validate checks the backend specific fields.
func (p PlayerConfig) Validate() error {
	switch strings.ToLower(p.Backend) {
	case "decoder", "ffmpeg", "webcam":
		if p.Decoder.Input == "" {
			return fmt.Errorf("decoder input is required")
		}
	case "grabber", "rtv":
		if p.Grabber.Address == "" || p.Grabber.Port <= 0 {
			return fmt.Errorf("grabber address and port are required")
		}
	case "machinevision", "ptgray", "camera":
		if p.MachineVision.Serial == "" {
			return fmt.Errorf("machine vision serial is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", p.Backend)
	}
	if strings.Count(p.Filename, IncrementPlaceholder) > 1 {
		return fmt.Errorf("filename %q has more than one %s placeholder", p.Filename, IncrementPlaceholder)
	}
	if p.Play.Rate < 0 || p.Record.Rate < 0 {
		return fmt.Errorf("negative frame rate")
	}
	return nil
}

func (p *PlayerConfig) applyDefaults(index int, videoDir string) {
	if p.Name == "" {
		p.Name = fmt.Sprintf("player%d", index+1)
	}
	if p.Backend == "" {
		p.Backend = "decoder"
	}
	if p.OutputDir == "" {
		p.OutputDir = videoDir
	}
	if p.Filename == "" {
		p.Filename = p.Name + "_" + IncrementPlaceholder
	}
	if p.Record.Codec == "" {
		p.Record.Codec = "rawvideo"
	}
	if p.Record.Container == "" {
		p.Record.Container = "avi"
	}
	if p.Extension == "" {
		p.Extension = "." + p.Record.Container
	}
}
