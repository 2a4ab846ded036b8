package gstreamer

import (
	"errors"
	"fmt"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/source"
)

// machineVisionPipeline opens a GenICam camera by serial number through aravis. The
// camera is asked for the output format directly, no conversion happens on the host.
func machineVisionPipeline(mv config.MachineVisionConfig, out media.Metadata) (string, error) {
	if mv.Serial == "" {
		return "", errors.New("camera serial is required")
	}
	caps, err := capsString(out)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("aravissrc camera-name=%q ! capsfilter caps=\"%s\" ! "+
		"appsink name=%s sync=false max-buffers=1 drop=true",
		mv.Serial, caps, appsinkName), nil
}

// NewMachineVisionSource is the source.Constructor of the machine vision backend.
func NewMachineVisionSource(p config.PlayerConfig) (source.FrameSource, error) {
	format, err := machineVisionFormats.choose(p.MachineVision.PixFmt, p.Play.Format)
	if err != nil {
		return nil, err
	}
	out := p.Play
	out.Format = format
	description, err := machineVisionPipeline(p.MachineVision, out)
	if err != nil {
		return nil, err
	}
	return newAppsinkSource(p.Name, description), nil
}
