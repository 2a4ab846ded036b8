package ffmpeg

import (
	"errors"
	"fmt"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/recording"
)

// Encoders opens libav encoders. It implements recording.EncoderFactory.
var Encoders = recording.EncoderFunc(OpenEncoder)

// Encoder encodes frames with one libav codec and muxes them into a file.
type Encoder struct {
	path  string
	input media.Metadata
	rate  media.Rational

	oc     *astiav.FormatContext
	pb     *astiav.IOContext
	cc     *astiav.CodecContext
	stream *astiav.Stream
	src    *astiav.Frame
	scaler *scaler
	pkt    *astiav.Packet

	header  bool
	lastPts int64
	frames  int64
	bytes   int64
}

// OpenEncoder creates the output file described by opts and writes its header.
func OpenEncoder(opts recording.Options) (enc recording.Encoder, err error) {
	Init()
	e := &Encoder{path: opts.Path, input: opts.Input, rate: opts.Rate, lastPts: -1}
	defer func() {
		if err != nil {
			e.free()
		}
	}()

	if opts.Rate.Num <= 0 || opts.Rate.Den <= 0 {
		return nil, recording.ErrRateUnavailable
	}
	inPix, err := pixelFormat(opts.Input.Format)
	if err != nil {
		return nil, err
	}
	outPix, err := pixelFormat(opts.Output.Format)
	if err != nil {
		return nil, err
	}

	if e.oc, err = astiav.AllocOutputFormatContext(nil, opts.Container, opts.Path); err != nil {
		return nil, fmt.Errorf("output format %s: %w", opts.Container, err)
	}
	if e.oc == nil {
		return nil, fmt.Errorf("output format %s not available", opts.Container)
	}

	codec := astiav.FindEncoderByName(opts.Codec)
	if codec == nil {
		return nil, fmt.Errorf("encoder %s not available", opts.Codec)
	}
	if e.cc = astiav.AllocCodecContext(codec); e.cc == nil {
		return nil, errors.New("allocating encoder context")
	}
	e.cc.SetWidth(opts.Output.Width)
	e.cc.SetHeight(opts.Output.Height)
	e.cc.SetPixelFormat(outPix)
	e.cc.SetTimeBase(astiav.NewRational(opts.Rate.Den, opts.Rate.Num))
	e.cc.SetFramerate(astiav.NewRational(opts.Rate.Num, opts.Rate.Den))
	if e.oc.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		e.cc.SetFlags(e.cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	dict, err := dictionary(opts.CodecOptions)
	if err != nil {
		return nil, err
	}
	defer dict.Free()
	if err := e.cc.Open(codec, dict); err != nil {
		return nil, fmt.Errorf("opening encoder %s: %w", opts.Codec, err)
	}

	if e.stream = e.oc.NewStream(nil); e.stream == nil {
		return nil, errors.New("adding output stream")
	}
	if err := e.stream.CodecParameters().FromCodecContext(e.cc); err != nil {
		return nil, fmt.Errorf("setting stream parameters: %w", err)
	}
	e.stream.SetTimeBase(e.cc.TimeBase())

	if !e.oc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		if e.pb, err = astiav.OpenIOContext(opts.Path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil); err != nil {
			return nil, fmt.Errorf("creating %s: %w", opts.Path, err)
		}
		e.oc.SetPb(e.pb)
	}
	if err := e.oc.WriteHeader(nil); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	e.header = true

	e.src = astiav.AllocFrame()
	e.src.SetWidth(opts.Input.Width)
	e.src.SetHeight(opts.Input.Height)
	e.src.SetPixelFormat(inPix)
	if err := e.src.AllocBuffer(1); err != nil {
		return nil, fmt.Errorf("allocating input frame: %w", err)
	}
	e.scaler = newScaler(opts.Output.Width, opts.Output.Height, outPix)
	e.pkt = astiav.AllocPacket()
	return e, nil
}

// WriteFrame encodes f at pts seconds. Frames that round to the timestamp of the
// previous one are rejected with recording.ErrNonMonotonic.
func (e *Encoder) WriteFrame(f *media.Frame, pts float64) error {
	if f.Width != e.input.Width || f.Height != e.input.Height || f.Format != e.input.Format {
		return fmt.Errorf("frame %d is %dx%d %s, recording expects %s", f.Seq, f.Width, f.Height, f.Format, e.input)
	}
	ts := ticks(pts, e.rate)
	if ts <= e.lastPts {
		return fmt.Errorf("frame %d at tick %d: %w", f.Seq, ts, recording.ErrNonMonotonic)
	}

	if err := e.src.MakeWritable(); err != nil {
		return fmt.Errorf("input frame: %w", err)
	}
	if err := e.src.Data().SetBytes(f.Data, 1); err != nil {
		return fmt.Errorf("loading frame %d: %w", f.Seq, err)
	}
	out, err := e.scaler.scale(e.src)
	if err != nil {
		return err
	}
	out.SetPts(ts)
	if err := e.encode(out); err != nil {
		return err
	}
	e.lastPts = ts
	e.frames++
	return nil
}

// encode sends frame to the codec, nil flushes it, and muxes the packets produced.
func (e *Encoder) encode(frame *astiav.Frame) error {
	if err := e.cc.SendFrame(frame); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	for {
		err := e.cc.ReceivePacket(e.pkt)
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("encoding: %w", err)
		}
		e.pkt.SetStreamIndex(e.stream.Index())
		e.pkt.RescaleTs(e.cc.TimeBase(), e.stream.TimeBase())
		e.bytes += int64(e.pkt.Size())
		err = e.oc.WriteInterleavedFrame(e.pkt)
		e.pkt.Unref()
		if err != nil {
			return fmt.Errorf("writing packet: %w", err)
		}
	}
}

// BytesWritten is the size of the encoded packets so far. After Close it is the file size.
func (e *Encoder) BytesWritten() int64 {
	return e.bytes
}

// Close flushes the codec, writes the trailer and closes the file.
func (e *Encoder) Close() error {
	var errs []error
	if e.header {
		if err := e.encode(nil); err != nil {
			errs = append(errs, err)
		}
		if err := e.oc.WriteTrailer(); err != nil {
			errs = append(errs, fmt.Errorf("writing trailer: %w", err))
		}
		e.header = false
	}
	if e.pb != nil {
		if err := e.pb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", e.path, err))
		}
		e.pb = nil
	}
	e.free()
	if info, err := os.Stat(e.path); err == nil {
		e.bytes = info.Size()
	}
	return errors.Join(errs...)
}

func (e *Encoder) free() {
	if e.pkt != nil {
		e.pkt.Free()
		e.pkt = nil
	}
	if e.scaler != nil {
		e.scaler.close()
		e.scaler = nil
	}
	if e.src != nil {
		e.src.Free()
		e.src = nil
	}
	if e.cc != nil {
		e.cc.Free()
		e.cc = nil
	}
	if e.pb != nil {
		e.pb.Close()
		e.pb = nil
	}
	if e.oc != nil {
		e.oc.Free()
		e.oc = nil
	}
}
