package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageSize(t *testing.T) {
	tests := []struct {
		format PixelFormat
		w, h   int
		want   int
	}{
		{Gray8, 64, 48, 3072},
		{Gray16LE, 64, 48, 6144},
		{RGB24, 64, 48, 9216},
		{BGRA, 2, 2, 16},
		{YUV420P, 64, 48, 4608},
		{YUV420P, 3, 3, 9 + 2*4},
		{YUYV422, 4, 2, 16},
	}
	for _, tt := range tests {
		got, err := ImageSize(tt.format, tt.w, tt.h)
		require.NoError(t, err, tt.format)
		assert.Equal(t, tt.want, got, "%s %dx%d", tt.format, tt.w, tt.h)
	}

	_, err := ImageSize("nv42", 4, 4)
	assert.Error(t, err)
	_, err = ImageSize(Gray8, 0, 4)
	assert.Error(t, err)
}

func TestPreferredOutput(t *testing.T) {
	assert.Equal(t, Gray8, PreferredOutput(Gray8))
	assert.Equal(t, RGB24, PreferredOutput(BGR24))
	assert.Equal(t, RGBA, PreferredOutput(BGRA))
	assert.Equal(t, YUV420P, PreferredOutput(YUYV422))
	assert.Equal(t, YUV420P, PreferredOutput("nv12"))
}

func TestMetadataOrAndRate(t *testing.T) {
	negotiated := Metadata{Format: Gray8, Width: 64, Height: 48, Rate: 10}
	got := Metadata{Width: 32}.Or(negotiated)
	assert.Equal(t, Metadata{Format: Gray8, Width: 32, Height: 48, Rate: 10}, got)
	assert.Equal(t, 30720.0, negotiated.BytesPerSecond())
	assert.Zero(t, Metadata{Format: Gray8, Width: 64, Height: 48}.BytesPerSecond())
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "9.32 GB", PrettySpace(10003045065, false))
	assert.Equal(t, "9.32 GB/s", PrettySpace(10003045065, true))
	assert.Equal(t, "512.00 bytes", PrettySpace(512, false))
	assert.Equal(t, "10:9:34.0", PrettyTime(36574))
	assert.Equal(t, "1:5.5", PrettyTime(65.5))
	assert.Equal(t, "3.2", PrettyTime(3.25))
}
