package media

import "fmt"

// PixelFormat uses the libav pixel format names so it can be handed to the codec library as is.
type PixelFormat string

const (
	Gray8      PixelFormat = "gray"
	Gray16LE   PixelFormat = "gray16le"
	RGB24      PixelFormat = "rgb24"
	BGR24      PixelFormat = "bgr24"
	RGBA       PixelFormat = "rgba"
	BGRA       PixelFormat = "bgra"
	YUV420P    PixelFormat = "yuv420p"
	YUYV422    PixelFormat = "yuyv422"
	BayerRGGB8 PixelFormat = "bayer_rggb8"
)

// ImageSize returns the number of bytes of a tightly packed image.
func ImageSize(format PixelFormat, width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	halfW, halfH := (width+1)/2, (height+1)/2
	switch format {
	case Gray8, BayerRGGB8:
		return width * height, nil
	case Gray16LE:
		return 2 * width * height, nil
	case RGB24, BGR24:
		return 3 * width * height, nil
	case RGBA, BGRA:
		return 4 * width * height, nil
	case YUV420P:
		return width*height + 2*halfW*halfH, nil
	case YUYV422:
		return 4 * halfW * height, nil
	default:
		return 0, fmt.Errorf("unknown pixel format %q", format)
	}
}

// PreferredOutput picks the packed format a decoded stream is converted to for display and recording.
func PreferredOutput(src PixelFormat) PixelFormat {
	switch src {
	case Gray8:
		return Gray8
	case RGB24, BGR24:
		return RGB24
	case RGBA, BGRA:
		return RGBA
	default:
		return YUV420P
	}
}
