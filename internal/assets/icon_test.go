package assets

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIcon(t *testing.T) {
	assert.Equal(t, "Icon.png", IconResource.Name())
	img, err := png.Decode(bytes.NewReader(IconResource.Content()))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())

	r, _, _, _ := img.At(iconSize/2, iconSize/2).RGBA()
	assert.Equal(t, uint32(0xe5e5), r)
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0x2222), r)
}
