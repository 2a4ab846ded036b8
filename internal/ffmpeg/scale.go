package ffmpeg

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// scaler converts frames to a fixed packed format and size. The swscale context is
// rebuilt whenever the source geometry changes.
type scaler struct {
	ssc        *astiav.SoftwareScaleContext
	dst        *astiav.Frame
	srcW, srcH int
	srcPix     astiav.PixelFormat

	dstW, dstH int
	dstPix     astiav.PixelFormat
}

func newScaler(w, h int, pix astiav.PixelFormat) *scaler {
	return &scaler{dstW: w, dstH: h, dstPix: pix}
}

func (s *scaler) close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *scaler) ensure(src *astiav.Frame) error {
	sw, sh, sp := src.Width(), src.Height(), src.PixelFormat()
	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix {
		return nil
	}
	s.close()

	dw, dh := s.dstW, s.dstH
	if dw <= 0 || dh <= 0 {
		dw, dh = sw, sh
	}
	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, dw, dh, s.dstPix,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
	if err != nil {
		return fmt.Errorf("creating scaler %dx%d %s -> %dx%d %s: %w", sw, sh, sp, dw, dh, s.dstPix, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(dw)
	dst.SetHeight(dh)
	dst.SetPixelFormat(s.dstPix)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("allocating scaled frame: %w", err)
	}

	s.ssc, s.dst = ssc, dst
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	s.dstW, s.dstH = dw, dh
	return nil
}

// scale converts src into the scaler's own destination frame and returns it.
func (s *scaler) scale(src *astiav.Frame) (*astiav.Frame, error) {
	if err := s.ensure(src); err != nil {
		return nil, err
	}
	// an encoder may still reference the previous picture
	if err := s.dst.MakeWritable(); err != nil {
		return nil, fmt.Errorf("scaled frame: %w", err)
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("scaling frame: %w", err)
	}
	return s.dst, nil
}

// packed converts src and copies the result into a tightly packed slice.
func (s *scaler) packed(src *astiav.Frame) ([]byte, error) {
	dst, err := s.scale(src)
	if err != nil {
		return nil, err
	}
	n, err := dst.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("image buffer size: %w", err)
	}
	out := make([]byte, n)
	if _, err := dst.ImageCopyToBuffer(out, 1); err != nil {
		return nil, fmt.Errorf("copying image: %w", err)
	}
	return out, nil
}
