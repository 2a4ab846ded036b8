package recording

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
)

// OpenError reports an output file that could not be opened. Nothing was written.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Stats are the running totals of a recording session.
type Stats struct {
	Frames  int64
	Skipped int64
	Bytes   int64
	Elapsed float64 // seconds, timestamp of the last written frame
}

// Worker drains a Queue into an encoder opened on the first frame.
type Worker struct {
	queue   *Queue
	factory EncoderFactory
	path    string
	record  config.RecordConfig

	// OnOpen is called once the encoder is open, before the first frame is written.
	OnOpen func(opts Options)
	// OnWriteError is called for every frame that could not be written.
	OnWriteError func(f *media.Frame, skipped int64, err error)

	frames  atomic.Int64
	skipped atomic.Int64
	bytes   atomic.Int64
	elapsed atomic.Uint64
}

// NewWorker returns a worker writing the frames of q to path.
func NewWorker(q *Queue, factory EncoderFactory, path string, record config.RecordConfig) *Worker {
	return &Worker{queue: q, factory: factory, path: path, record: record}
}

// Path returns the output file name.
func (w *Worker) Path() string {
	return w.path
}

// Stats returns the totals so far; safe to call from any goroutine.
func (w *Worker) Stats() Stats {
	return Stats{
		Frames:  w.frames.Load(),
		Skipped: w.skipped.Load(),
		Bytes:   w.bytes.Load(),
		Elapsed: math.Float64frombits(w.elapsed.Load()),
	}
}

// Run consumes the queue until the sentinel. opened reports whether an output file was
// started. A returned error with opened false is fatal to the session; with opened true
// it comes from finalizing the file.
func (w *Worker) Run() (opened bool, err error) {
	var (
		enc     Encoder
		rate    float64
		start   float64
		lastPts = math.Inf(-1)
	)
	defer func() {
		if enc != nil {
			if cerr := enc.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing %s: %w", w.path, cerr)
			}
			w.bytes.Store(enc.BytesWritten())
		}
	}()

	for {
		item := w.queue.Pop()
		switch item.Kind {
		case ItemEnd:
			return enc != nil, nil

		case ItemRate:
			if rate == 0 {
				rate = item.Rate
			}

		case ItemFrame:
			f := item.Frame
			if enc == nil {
				enc, err = w.open(f, rate)
				if err != nil {
					w.queue.Close()
					return false, err
				}
				start = f.Timestamp
			}

			pts := f.Timestamp - start
			if pts <= lastPts {
				w.writeFailed(f, fmt.Errorf("frame %d at %.6fs: %w", f.Seq, pts, ErrNonMonotonic))
				continue
			}
			if werr := enc.WriteFrame(f, pts); werr != nil {
				w.writeFailed(f, werr)
				continue
			}
			lastPts = pts
			w.frames.Add(1)
			w.bytes.Store(enc.BytesWritten())
			w.elapsed.Store(math.Float64bits(pts))
		}
	}
}

func (w *Worker) open(first *media.Frame, rate float64) (Encoder, error) {
	opts, err := ComputeOptions(w.record, w.path, first, rate)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return nil, &OpenError{Path: w.path, Err: err}
	}
	_, statErr := os.Stat(w.path)
	existed := statErr == nil

	enc, err := w.factory.Open(opts)
	if err != nil {
		if !existed {
			if rerr := os.Remove(w.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				err = fmt.Errorf("%w (partial file left: %v)", err, rerr)
			}
		}
		return nil, &OpenError{Path: w.path, Err: err}
	}
	if w.OnOpen != nil {
		w.OnOpen(opts)
	}
	return enc, nil
}

func (w *Worker) writeFailed(f *media.Frame, err error) {
	n := w.skipped.Add(1)
	if w.OnWriteError != nil {
		w.OnWriteError(f, n, err)
	}
}
