package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/asticode/go-astiav"
	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/source"
)

// DecoderSource reads a file, a network stream or a capture device through libav
// and converts every decoded picture to one packed pixel format.
type DecoderSource struct {
	name string
	cfg  config.DecoderConfig

	mu          sync.Mutex
	closed      bool
	interrupter *astiav.IOInterrupter
	stopped     atomic.Bool

	fc       *astiav.FormatContext
	opened   bool
	cc       *astiav.CodecContext
	stream   *astiav.Stream
	pkt      *astiav.Packet
	frame    *astiav.Frame
	scaler   *scaler
	output   media.PixelFormat
	timeBase astiav.Rational
	rate     float64

	pending []*media.Frame
	eof     bool
	seq     uint64
}

// NewDecoderSource is the source.Constructor of the decoder backend.
func NewDecoderSource(p config.PlayerConfig) (source.FrameSource, error) {
	if p.Decoder.Input == "" {
		return nil, errors.New("decoder input is required")
	}
	Init()
	return &DecoderSource{
		name:        p.Name,
		cfg:         p.Decoder,
		interrupter: astiav.NewIOInterrupter(),
	}, nil
}

func (d *DecoderSource) Open(ctx context.Context, requested media.Metadata) (media.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return media.Metadata{}, err
	}

	d.fc = astiav.AllocFormatContext()
	if d.fc == nil {
		return media.Metadata{}, errors.New("allocating format context")
	}
	d.fc.SetIOInterrupter(d.interrupter)

	var inputFormat *astiav.InputFormat
	if d.cfg.Format != "" {
		if inputFormat = astiav.FindInputFormat(d.cfg.Format); inputFormat == nil {
			return media.Metadata{}, fmt.Errorf("unknown input format %q", d.cfg.Format)
		}
	}
	opts := inputOptions(d.cfg, requested)
	dict, err := dictionary(opts)
	if err != nil {
		return media.Metadata{}, err
	}
	defer dict.Free()

	logging.InfoLogger.Printf("%s: opening %s (format %q, options %v)", d.name, d.cfg.Input, d.cfg.Format, opts)
	if err := d.fc.OpenInput(d.cfg.Input, inputFormat, dict); err != nil {
		return media.Metadata{}, fmt.Errorf("opening %s: %w", d.cfg.Input, err)
	}
	d.opened = true
	if err := d.fc.FindStreamInfo(nil); err != nil {
		return media.Metadata{}, fmt.Errorf("reading stream info of %s: %w", d.cfg.Input, err)
	}

	for _, s := range d.fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			d.stream = s
			break
		}
	}
	if d.stream == nil {
		return media.Metadata{}, fmt.Errorf("%s has no video stream", d.cfg.Input)
	}

	par := d.stream.CodecParameters()
	codec := astiav.FindDecoder(par.CodecID())
	if codec == nil {
		return media.Metadata{}, fmt.Errorf("no decoder for %s", par.CodecID())
	}
	if d.cc = astiav.AllocCodecContext(codec); d.cc == nil {
		return media.Metadata{}, errors.New("allocating codec context")
	}
	if err := par.ToCodecContext(d.cc); err != nil {
		return media.Metadata{}, fmt.Errorf("copying codec parameters: %w", err)
	}
	if err := d.cc.Open(codec, nil); err != nil {
		return media.Metadata{}, fmt.Errorf("opening decoder %s: %w", codec.Name(), err)
	}

	d.timeBase = d.stream.TimeBase()
	d.rate = rateOf(d.stream.AvgFrameRate())
	if d.rate == 0 {
		d.rate = rateOf(d.cc.Framerate())
	}

	d.output = requested.Format
	if d.output == "" {
		d.output = media.PreferredOutput(media.PixelFormat(d.cc.PixelFormat().String()))
	}
	pix, err := pixelFormat(d.output)
	if err != nil {
		return media.Metadata{}, err
	}
	w, h := requested.Width, requested.Height
	if w <= 0 || h <= 0 {
		w, h = d.cc.Width(), d.cc.Height()
	}
	d.scaler = newScaler(w, h, pix)
	d.pkt = astiav.AllocPacket()
	d.frame = astiav.AllocFrame()

	return media.Metadata{Format: d.output, Width: w, Height: h, Rate: d.rate}, nil
}

func (d *DecoderSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	for len(d.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.eof {
			return nil, source.ErrEndOfStream
		}
		if err := d.decodeNext(); err != nil {
			if d.stopped.Load() {
				return nil, source.ErrClosed
			}
			return nil, err
		}
	}
	f := d.pending[0]
	d.pending[0] = nil
	d.pending = d.pending[1:]
	return f, nil
}

// decodeNext reads one packet of the video stream and queues the pictures it yields.
func (d *DecoderSource) decodeNext() error {
	if err := d.fc.ReadFrame(d.pkt); err != nil {
		switch {
		case errors.Is(err, astiav.ErrEof):
			d.eof = true
			return d.drain(nil)
		case errors.Is(err, astiav.ErrEagain):
			return source.ErrNoFrame
		default:
			return fmt.Errorf("reading %s: %w", d.cfg.Input, err)
		}
	}
	defer d.pkt.Unref()
	if d.pkt.StreamIndex() != d.stream.Index() {
		return nil
	}
	return d.drain(d.pkt)
}

// drain sends pkt to the decoder, nil flushes it, and converts every picture received.
func (d *DecoderSource) drain(pkt *astiav.Packet) error {
	if err := d.cc.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) && !errors.Is(err, astiav.ErrEof) {
		return fmt.Errorf("decoding: %w", err)
	}
	for {
		err := d.cc.ReceiveFrame(d.frame)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decoding: %w", err)
		}
		f, err := d.convert(d.frame)
		d.frame.Unref()
		if err != nil {
			return err
		}
		d.pending = append(d.pending, f)
	}
}

func (d *DecoderSource) convert(src *astiav.Frame) (*media.Frame, error) {
	data, err := d.scaler.packed(src)
	if err != nil {
		return nil, err
	}
	d.seq++
	ts := seconds(src.Pts(), d.timeBase)
	if src.Pts() == math.MinInt64 && d.rate > 0 {
		ts = float64(d.seq-1) / d.rate
	}
	return &media.Frame{
		Data:      data,
		Format:    d.output,
		Width:     d.scaler.dstW,
		Height:    d.scaler.dstH,
		Timestamp: ts,
		Seq:       d.seq,
	}, nil
}

// Interrupt aborts a blocking read; the read returns source.ErrClosed.
func (d *DecoderSource) Interrupt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped.Store(true)
	if !d.closed {
		d.interrupter.Interrupt()
	}
}

func (d *DecoderSource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.scaler != nil {
		d.scaler.close()
	}
	if d.frame != nil {
		d.frame.Free()
	}
	if d.pkt != nil {
		d.pkt.Free()
	}
	if d.cc != nil {
		d.cc.Free()
	}
	if d.fc != nil {
		if d.opened {
			d.fc.CloseInput()
		}
		d.fc.Free()
	}
	d.interrupter.Free()
	d.pending = nil
	return nil
}
