package gstreamer

import (
	"errors"
	"fmt"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/source"
)

// grabberPipeline pulls channel N of a frame grabber over RTSP, decodes it and
// converts it to the caps fixed by out.
func grabberPipeline(g config.GrabberConfig, out media.Metadata) (string, error) {
	if g.Address == "" || g.Port <= 0 {
		return "", errors.New("grabber address and port are required")
	}
	caps, err := capsString(out)
	if err != nil {
		return "", err
	}
	rate := ""
	if out.Rate > 0 {
		rate = "videorate drop-only=true ! "
	}
	return fmt.Sprintf("rtspsrc location=rtsp://%s:%d/%d latency=200 protocols=tcp ! decodebin ! "+
		"videoconvert ! videoscale ! %scapsfilter caps=\"%s\" ! "+
		"appsink name=%s sync=false max-buffers=1 drop=true",
		g.Address, g.Port, g.Channel, rate, caps, appsinkName), nil
}

// NewGrabberSource is the source.Constructor of the frame grabber backend.
func NewGrabberSource(p config.PlayerConfig) (source.FrameSource, error) {
	format, err := grabberFormats.choose(p.Grabber.PixFmt, p.Play.Format)
	if err != nil {
		return nil, err
	}
	out := p.Play
	out.Format = format
	description, err := grabberPipeline(p.Grabber, out)
	if err != nil {
		return nil, err
	}
	return newAppsinkSource(p.Name, description), nil
}
