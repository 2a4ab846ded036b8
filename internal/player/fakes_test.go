package player

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/recording"
	"github.com/owlcms/recorder/internal/source"
	"github.com/owlcms/recorder/internal/status"
)

const (
	testWidth  = 64
	testHeight = 48
	frameBytes = testWidth * testHeight
)

// fakeSource produces gray frames at 10 fps of source time. The first ungated frames are
// returned at once, the following ones wait for gate to be closed. After frames frames it
// returns failWith, or end of stream. A negative frames count never ends.
type fakeSource struct {
	frames   int
	ungated  int
	gate     chan struct{}
	pace     time.Duration
	rate     float64
	openErr  error
	failWith error

	n           int
	interrupted atomic.Int32
	closed      atomic.Bool
}

func (s *fakeSource) Open(ctx context.Context, requested media.Metadata) (media.Metadata, error) {
	if s.openErr != nil {
		return media.Metadata{}, s.openErr
	}
	return media.Metadata{Format: media.Gray8, Width: testWidth, Height: testHeight, Rate: s.rate}, nil
}

func (s *fakeSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	if s.frames >= 0 && s.n >= s.frames {
		if s.failWith != nil {
			return nil, s.failWith
		}
		return nil, source.ErrEndOfStream
	}
	if s.n >= s.ungated && s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.pace > 0 {
		select {
		case <-time.After(s.pace):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.n++
	return &media.Frame{
		Data:      make([]byte, frameBytes),
		Format:    media.Gray8,
		Width:     testWidth,
		Height:    testHeight,
		Timestamp: float64(s.n) / 10,
		Seq:       uint64(s.n),
	}, nil
}

func (s *fakeSource) Interrupt() { s.interrupted.Add(1) }

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

type sourceFunc func(cfg config.PlayerConfig) (source.FrameSource, error)

func (fn sourceFunc) New(cfg config.PlayerConfig) (source.FrameSource, error) { return fn(cfg) }

func serve(s *fakeSource) SourceFactory {
	return sourceFunc(func(config.PlayerConfig) (source.FrameSource, error) { return s, nil })
}

// rawEncoder writes frame bytes as they come, so the file size counts the frames.
type rawEncoder struct {
	f *os.File
	n int64
}

func openRaw(opts recording.Options) (recording.Encoder, error) {
	f, err := os.Create(opts.Path)
	if err != nil {
		return nil, err
	}
	return &rawEncoder{f: f}, nil
}

func (e *rawEncoder) WriteFrame(f *media.Frame, pts float64) error {
	n, err := e.f.Write(f.Data)
	e.n += int64(n)
	return err
}

func (e *rawEncoder) BytesWritten() int64 { return e.n }

func (e *rawEncoder) Close() error { return e.f.Close() }

// failingEncoder leaves a partial file behind and reports an error.
func failingEncoder(opts recording.Options) (recording.Encoder, error) {
	if err := os.WriteFile(opts.Path, []byte("partial"), 0644); err != nil {
		return nil, err
	}
	return nil, errors.New("codec not found")
}

type eventLog struct {
	mu     sync.Mutex
	events []status.Event
}

func (l *eventLog) OnEvent(ev status.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []status.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]status.Kind, 0, len(l.events))
	for _, ev := range l.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (l *eventLog) count(kind status.Kind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) first(kind status.Kind) (status.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ev := range l.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return status.Event{}, false
}

func testPlayer(t *testing.T) config.PlayerConfig {
	return config.PlayerConfig{
		Name:      "platform",
		Backend:   "decoder",
		Decoder:   config.DecoderConfig{Input: "test"},
		Play:      media.Metadata{Rate: 10},
		OutputDir: t.TempDir(),
		Filename:  "platform_{}",
		Extension: ".raw",
	}
}

func newTestController(t *testing.T, src *fakeSource, enc recording.EncoderFunc) (*Controller, *eventLog) {
	log := &eventLog{}
	c := NewController(testPlayer(t), Options{
		Sources:           serve(src),
		Encoders:          enc,
		Log:               log,
		FirstFrameTimeout: time.Second,
	})
	t.Cleanup(func() {
		c.StopAll(true)
	})
	return c, log
}

func waitStopped(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatal(err)
	}
}

// heldDispatcher keeps posted closures until the test runs them.
type heldDispatcher struct {
	mu     sync.Mutex
	posted []func()
}

func (d *heldDispatcher) Post(fn func()) {
	d.mu.Lock()
	d.posted = append(d.posted, fn)
	d.mu.Unlock()
}

func (d *heldDispatcher) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.posted)
}

func (d *heldDispatcher) run(i int) {
	d.mu.Lock()
	fn := d.posted[i]
	d.mu.Unlock()
	fn()
}
