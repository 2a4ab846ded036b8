package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"fyne.io/fyne/v2"
)

const iconSize = 64

// IconResource is the window and tray icon: a red record dot on a dark tile.
var IconResource = fyne.NewStaticResource("Icon.png", drawIcon())

func drawIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	background := color.NRGBA{R: 0x22, G: 0x26, B: 0x2e, A: 0xff}
	dot := color.NRGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}

	c, r := float64(iconSize-1)/2, float64(iconSize)*0.3
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, dot)
			} else {
				img.SetNRGBA(x, y, background)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
