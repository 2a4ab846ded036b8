package gstreamer

import (
	"testing"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaps(t *testing.T) {
	m, err := parseCaps("video/x-raw, format=(string)GRAY8, width=(int)640, height=(int)480, " +
		"interlace-mode=(string)progressive, pixel-aspect-ratio=(fraction)1/1, framerate=(fraction)30000/1001")
	require.NoError(t, err)
	assert.Equal(t, media.Gray8, m.Format)
	assert.Equal(t, 640, m.Width)
	assert.Equal(t, 480, m.Height)
	assert.InDelta(t, 29.97, m.Rate, 1e-3)

	m, err = parseCaps("video/x-bayer, format=(string)rggb, width=(int)1280, height=(int)1024, framerate=(fraction)0/1")
	require.NoError(t, err)
	assert.Equal(t, media.Metadata{Format: media.BayerRGGB8, Width: 1280, Height: 1024}, m)

	_, err = parseCaps("video/x-raw, format=(string)NV12, width=(int)640, height=(int)480")
	assert.Error(t, err)
	_, err = parseCaps("video/x-raw, format=(string)RGB")
	assert.Error(t, err)
}

func TestCapsString(t *testing.T) {
	s, err := capsString(media.Metadata{Format: media.RGB24, Width: 640, Height: 480, Rate: 30})
	require.NoError(t, err)
	assert.Equal(t, "video/x-raw,format=RGB,width=640,height=480,framerate=30/1", s)

	s, err = capsString(media.Metadata{Format: media.Gray16LE, Rate: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "video/x-raw,format=GRAY16_LE,framerate=1/2", s)

	_, err = capsString(media.Metadata{Format: "nv12"})
	assert.Error(t, err)
}

func TestFormatTables(t *testing.T) {
	f, err := grabberFormats.choose("", "")
	require.NoError(t, err)
	assert.Equal(t, media.RGB24, f)

	f, err = grabberFormats.choose("", media.YUV420P)
	require.NoError(t, err)
	assert.Equal(t, media.YUV420P, f)

	_, err = grabberFormats.choose(media.BayerRGGB8)
	assert.Error(t, err)

	f, err = machineVisionFormats.choose(media.BayerRGGB8, media.RGB24)
	require.NoError(t, err)
	assert.Equal(t, media.BayerRGGB8, f)

	_, err = machineVisionFormats.choose(media.YUV420P)
	assert.Error(t, err)
}

func TestPipelines(t *testing.T) {
	g, err := grabberPipeline(config.GrabberConfig{Address: "10.0.0.5", Port: 554, Channel: 2},
		media.Metadata{Format: media.Gray8, Rate: 25})
	require.NoError(t, err)
	assert.Equal(t, "rtspsrc location=rtsp://10.0.0.5:554/2 latency=200 protocols=tcp ! decodebin ! "+
		"videoconvert ! videoscale ! videorate drop-only=true ! capsfilter caps=\"video/x-raw,format=GRAY8,framerate=25/1\" ! "+
		"appsink name=sink sync=false max-buffers=1 drop=true", g)

	_, err = grabberPipeline(config.GrabberConfig{Address: "10.0.0.5"}, media.Metadata{Format: media.Gray8})
	assert.Error(t, err)

	mv, err := machineVisionPipeline(config.MachineVisionConfig{Serial: "Point Grey-1234"},
		media.Metadata{Format: media.BayerRGGB8, Width: 1280, Height: 1024})
	require.NoError(t, err)
	assert.Equal(t, `aravissrc camera-name="Point Grey-1234" ! capsfilter caps="video/x-bayer,format=rggb,width=1280,height=1024" ! `+
		`appsink name=sink sync=false max-buffers=1 drop=true`, mv)
}

func TestPackRemovesRowPadding(t *testing.T) {
	m := media.Metadata{Format: media.RGB24, Width: 3, Height: 2}
	padded := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 0, 0,
		10, 11, 12, 13, 14, 15, 16, 17, 18, 0, 0, 0,
	}
	out, err := pack(padded, m)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}, out)

	tight := make([]byte, 4*2)
	out, err = pack(tight, media.Metadata{Format: media.Gray8, Width: 4, Height: 2})
	require.NoError(t, err)
	assert.Len(t, out, 8)

	_, err = pack(make([]byte, 5), m)
	assert.Error(t, err)
}
