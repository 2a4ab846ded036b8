package media

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameImage(t *testing.T) {
	gray := &Frame{Format: Gray8, Width: 2, Height: 2, Data: []byte{0, 50, 100, 200}}
	img, err := gray.Image()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.Gray{Y: 100}, img.At(0, 1))

	bgr := &Frame{Format: BGR24, Width: 1, Height: 1, Data: []byte{1, 2, 3}}
	img, err = bgr.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 3, G: 2, B: 1, A: 255}, img.At(0, 0))

	deep := &Frame{Format: Gray16LE, Width: 1, Height: 1, Data: []byte{0x34, 0x12}}
	img, err = deep.Image()
	require.NoError(t, err)
	assert.Equal(t, color.Gray16{Y: 0x1234}, img.At(0, 0))

	yuv := &Frame{Format: YUV420P, Width: 2, Height: 2, Data: []byte{0, 0, 0, 0, 128, 128}}
	img, err = yuv.Image()
	require.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{r, g, b}, []uint32{0, 0, 0})

	yuyv := &Frame{Format: YUYV422, Width: 2, Height: 1, Data: []byte{255, 128, 255, 128}}
	img, err = yuyv.Image()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(1, 0))
}

func TestFrameImageErrors(t *testing.T) {
	_, err := (&Frame{Format: RGB24, Width: 2, Height: 2, Data: make([]byte, 5)}).Image()
	assert.Error(t, err)
	_, err = (&Frame{Format: "nv42", Width: 2, Height: 2}).Image()
	assert.Error(t, err)
}

func TestFrameThumbnail(t *testing.T) {
	f := &Frame{Format: Gray8, Width: 64, Height: 48, Data: make([]byte, 64*48)}
	img, err := f.Thumbnail(32, 32)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())

	img, err = f.Thumbnail(640, 480)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	_, err = (&Frame{Format: "nv42", Width: 2, Height: 2}).Thumbnail(32, 32)
	assert.Error(t, err)
}
