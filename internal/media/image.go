package media

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Image wraps or converts the frame into an image.Image for display.
// Gray, 8 bit RGBA and planar 4:2:0 frames share their pixel data with the frame.
func (f *Frame) Image() (image.Image, error) {
	size, err := ImageSize(f.Format, f.Width, f.Height)
	if err != nil {
		return nil, err
	}
	if len(f.Data) < size {
		return nil, fmt.Errorf("frame %d has %d bytes, %s %dx%d needs %d", f.Seq, len(f.Data), f.Format, f.Width, f.Height, size)
	}
	rect := image.Rect(0, 0, f.Width, f.Height)

	switch f.Format {
	case Gray8, BayerRGGB8:
		return &image.Gray{Pix: f.Data, Stride: f.Width, Rect: rect}, nil
	case Gray16LE:
		img := image.NewGray16(rect)
		for i := 0; i < f.Width*f.Height; i++ {
			// image.Gray16 is big endian
			img.Pix[2*i], img.Pix[2*i+1] = f.Data[2*i+1], f.Data[2*i]
		}
		return img, nil
	case RGBA:
		return &image.NRGBA{Pix: f.Data, Stride: 4 * f.Width, Rect: rect}, nil
	case RGB24, BGR24, BGRA:
		return f.toNRGBA(rect), nil
	case YUV420P:
		halfW, halfH := (f.Width+1)/2, (f.Height+1)/2
		y := f.Width * f.Height
		return &image.YCbCr{
			Y:              f.Data[:y],
			Cb:             f.Data[y : y+halfW*halfH],
			Cr:             f.Data[y+halfW*halfH : y+2*halfW*halfH],
			YStride:        f.Width,
			CStride:        halfW,
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           rect,
		}, nil
	case YUYV422:
		img := image.NewNRGBA(rect)
		stride := 4 * ((f.Width + 1) / 2)
		for row := 0; row < f.Height; row++ {
			line := f.Data[row*stride:]
			for x := 0; x < f.Width; x++ {
				pair := line[4*(x/2):]
				luma := pair[0]
				if x%2 == 1 {
					luma = pair[2]
				}
				r, g, b := color.YCbCrToRGB(luma, pair[1], pair[3])
				img.SetNRGBA(x, row, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("cannot display %s frames", f.Format)
	}
}

func (f *Frame) toNRGBA(rect image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(rect)
	bpp := 3
	if f.Format == BGRA {
		bpp = 4
	}
	for i := 0; i < f.Width*f.Height; i++ {
		src, dst := f.Data[bpp*i:], img.Pix[4*i:]
		switch f.Format {
		case RGB24:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
		case BGR24:
			dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], 255
		case BGRA:
			dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
		}
	}
	return img
}

// Thumbnail scales the frame to fit in maxWidth x maxHeight, keeping its aspect ratio.
// Frames already small enough are returned unscaled.
func (f *Frame) Thumbnail(maxWidth, maxHeight uint) (image.Image, error) {
	img, err := f.Image()
	if err != nil {
		return nil, err
	}
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Bilinear), nil
}
