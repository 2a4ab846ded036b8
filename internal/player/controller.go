package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/recording"
	"github.com/owlcms/recorder/internal/source"
	"github.com/owlcms/recorder/internal/status"
)

// SourceFactory builds the frame source of a player.
type SourceFactory interface {
	New(cfg config.PlayerConfig) (source.FrameSource, error)
}

// Options are the collaborators shared by the controllers of a registry.
type Options struct {
	Sources  SourceFactory
	Encoders recording.EncoderFactory
	// Display, when set, receives every frame in addition to the controller's own latest frame cell.
	Display DisplaySink
	Log     LogSink
	// Dispatcher applies the Starting to Playing transition. Defaults to Immediate.
	Dispatcher        Dispatcher
	QueueSize         int
	FirstFrameTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Dispatcher == nil {
		o.Dispatcher = Immediate
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 128
	}
	if o.FirstFrameTimeout <= 0 {
		o.FirstFrameTimeout = 30 * time.Second
	}
	return o
}

// Stats is a snapshot of a controller.
type Stats struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	Backend              string         `json:"backend"`
	PlayState            PlayState      `json:"playState"`
	RecordState          RecordState    `json:"recordState"`
	Negotiated           media.Metadata `json:"negotiated"`
	FPS                  float64        `json:"fps"`
	FramesPlayed         int64          `json:"framesPlayed"`
	FramesRecorded       int64          `json:"framesRecorded"`
	FramesSkipped        int64          `json:"framesSkipped"`
	FramesDropped        uint64         `json:"framesDropped"`
	BytesRecorded        int64          `json:"bytesRecorded"`
	RecordElapsed        float64        `json:"recordElapsed"`
	Session              string         `json:"session,omitempty"`
	OutputPath           string         `json:"outputPath"`
	Increment            int            `json:"increment"`
	InputBytesPerSecond  float64        `json:"inputBytesPerSecond"`
	OutputBytesPerSecond float64        `json:"outputBytesPerSecond"`
}

// Controller runs the capture and recording sessions of one player.
type Controller struct {
	id     string
	name   string
	opts   Options
	latest *LatestFrame

	mu          sync.Mutex
	cfg         config.PlayerConfig
	playState   PlayState
	recordState RecordState
	stopPending bool
	cancel      context.CancelFunc
	playDone    chan struct{}
	negotiated  media.Metadata
	lastErr     error

	// queue is the queue the capture goroutine feeds, nil when not recording.
	queue      *recording.Queue
	session    *recording.Worker
	sessionQ   *recording.Queue
	recordDone chan struct{}
	recordID   string

	lastFrame    atomic.Pointer[media.Frame]
	framesPlayed atomic.Int64
	fps          atomic.Uint64
}

// NewController returns an idle controller for cfg.
func NewController(cfg config.PlayerConfig, opts Options) *Controller {
	done := make(chan struct{})
	close(done)
	return &Controller{
		id:       uuid.NewString(),
		name:     cfg.Name,
		opts:     opts.withDefaults(),
		latest:   NewLatestFrame(),
		cfg:      cfg,
		playDone: done,
	}
}

func (c *Controller) ID() string   { return c.id }
func (c *Controller) Name() string { return c.name }

// Latest is the cell holding the most recent frame, for render loops.
func (c *Controller) Latest() *LatestFrame { return c.latest }

// LastFrame returns the most recently captured frame.
func (c *Controller) LastFrame() *media.Frame { return c.lastFrame.Load() }

func (c *Controller) PlayState() PlayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playState
}

func (c *Controller) RecordState() RecordState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordState
}

// Config returns the player configuration, including the current increment.
func (c *Controller) Config() config.PlayerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Increment returns the value substituted into the next output file name.
func (c *Controller) Increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Increment
}

// OutputPath is the file of the current or last recording session, empty before the first one.
func (c *Controller) OutputPath() string {
	c.mu.Lock()
	w := c.session
	c.mu.Unlock()
	if w == nil {
		return ""
	}
	return w.Path()
}

// LastError returns the last fatal error of a play or record session.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Stats returns a snapshot of the counters. Recording counters refer to the current or last session.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	st := Stats{
		ID:          c.id,
		Name:        c.name,
		Backend:     c.cfg.Backend,
		PlayState:   c.playState,
		RecordState: c.recordState,
		Negotiated:  c.negotiated,
		Increment:   c.cfg.Increment,
	}
	w, q, rec, session := c.session, c.sessionQ, c.cfg.Record, c.recordID
	c.mu.Unlock()

	st.FramesPlayed = c.framesPlayed.Load()
	st.FPS = math.Float64frombits(c.fps.Load())
	st.InputBytesPerSecond = st.Negotiated.BytesPerSecond()
	st.OutputBytesPerSecond = rec.Metadata().Or(st.Negotiated).BytesPerSecond()
	if w != nil {
		rs := w.Stats()
		st.FramesRecorded = rs.Frames
		st.FramesSkipped = rs.Skipped
		st.BytesRecorded = rs.Bytes
		st.RecordElapsed = rs.Elapsed
		st.Session = session
		st.OutputPath = w.Path()
		st.FramesDropped = q.Dropped()
	}
	return st
}

// Play starts a capture session. It is only accepted when nothing is playing.
func (c *Controller) Play() bool {
	c.mu.Lock()
	if c.playState != PlayNone {
		state := c.playState
		c.mu.Unlock()
		c.invalid("play", "play requested while %s", state)
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.playState = PlayStarting
	c.stopPending = false
	c.cancel = cancel
	c.playDone = done
	c.negotiated = media.Metadata{}
	c.lastErr = nil
	cfg := c.cfg
	c.mu.Unlock()

	c.framesPlayed.Store(0)
	c.fps.Store(0)
	c.emit(status.Info, status.PlayStarting, "play", "starting %s source", cfg.Backend)
	go c.capture(ctx, cfg, done)
	return true
}

// Stop requests the end of the capture session, stopping any recording first.
// It returns without waiting; a second request while stopping does nothing.
func (c *Controller) Stop() bool {
	if c.PlayState() == PlayNone {
		c.invalid("stop", "stop requested while not playing")
		return false
	}
	return c.requestStop("stop")
}

// StopAll stops recording and playing. With join it waits for both to finish.
// It is safe to call in any state.
func (c *Controller) StopAll(join bool) {
	c.requestStop("shutdown")
	if join {
		c.Wait(context.Background())
	}
}

// Do runs a control action by name: play, stop, record or stopRecording.
func (c *Controller) Do(action string) (bool, error) {
	switch action {
	case "play":
		return c.Play(), nil
	case "stop":
		return c.Stop(), nil
	case "record":
		return c.Record(), nil
	case "stopRecording":
		return c.StopRecording(), nil
	default:
		return false, fmt.Errorf("unknown action %q", action)
	}
}

// Wait blocks until the current capture session, if any, has fully stopped.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.playDone
	c.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s to stop: %w", c.name, ctx.Err())
	}
}

// requestStop moves play to Stopping. Only the first request of a session has an effect.
func (c *Controller) requestStop(phase string) bool {
	c.mu.Lock()
	if c.playState == PlayNone || c.stopPending {
		pending := c.stopPending
		c.mu.Unlock()
		if pending {
			logging.Trace("%s: stop already pending (%s)", c.name, phase)
		}
		return false
	}
	c.stopPending = true
	c.playState = PlayStopping
	cancel := c.cancel
	c.mu.Unlock()

	c.emit(status.Info, status.PlayStopping, phase, "stopping")
	c.stopRecording(phase)
	cancel()
	return true
}

func (c *Controller) fail(kind status.Kind, phase string, err error) {
	e := &Error{Kind: kind, Controller: c.id, Phase: phase, Err: err}
	c.mu.Lock()
	c.lastErr = e
	c.mu.Unlock()
	c.emit(status.Error, kind, phase, "%v", err)
}

func (c *Controller) invalid(phase, format string, args ...interface{}) {
	c.emit(status.Warning, status.InvalidStateTransition, phase, format, args...)
}

func (c *Controller) emit(sev status.Severity, kind status.Kind, phase, format string, args ...interface{}) {
	c.emitSession("", sev, kind, phase, format, args...)
}

// emitSession reports an event tagged with the recording session it belongs to.
func (c *Controller) emitSession(session string, sev status.Severity, kind status.Kind, phase, format string, args ...interface{}) {
	if c.opts.Log == nil {
		return
	}
	c.opts.Log.OnEvent(status.Event{
		Time:       time.Now(),
		Severity:   sev,
		Controller: c.id,
		Player:     c.name,
		Session:    session,
		Kind:       kind,
		Phase:      phase,
		Message:    fmt.Sprintf(format, args...),
	})
}
