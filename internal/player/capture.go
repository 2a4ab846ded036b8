package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/recording"
	"github.com/owlcms/recorder/internal/source"
	"github.com/owlcms/recorder/internal/status"
)

const noFramePause = 10 * time.Millisecond

// capture is the body of the capture goroutine of one play session.
func (c *Controller) capture(ctx context.Context, cfg config.PlayerConfig, done chan struct{}) {
	defer c.finishPlay(done)
	defer func() {
		if r := recover(); r != nil {
			c.fail(status.InternalError, "capture", fmt.Errorf("capture loop panic: %v", r))
		}
	}()

	src, err := c.opts.Sources.New(cfg)
	if err != nil {
		c.fail(status.BackendOpenFailed, "open", err)
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			logging.WarningLogger.Printf("%s: closing source: %v", c.name, err)
		}
	}()
	stopInterrupt := context.AfterFunc(ctx, src.Interrupt)
	defer stopInterrupt()

	reported, err := src.Open(ctx, cfg.Play)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(status.BackendOpenFailed, "open", err)
		}
		return
	}

	first, err := c.firstFrame(ctx, src)
	if err != nil {
		if ctx.Err() == nil {
			kind := status.FirstFrameTimeout
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, source.ErrEndOfStream) {
				kind = status.BackendOpenFailed
			}
			c.fail(kind, "first frame", err)
		}
		return
	}

	rate := reported.Rate
	if rate <= 0 {
		rate = cfg.Play.Rate
	}
	if rate <= 0 {
		c.fail(status.RateUnavailable, "start", errors.New("the source did not report a frame rate and none is configured"))
		return
	}

	if !c.enterPlaying(ctx, done, first.Metadata(rate)) {
		return
	}

	var (
		meter    = newRateMeter(time.Now())
		attached *recording.Queue
		pause    = time.Duration(float64(time.Second) / rate / 2)
	)
	c.deliver(first, rate, &attached, meter)

	for ctx.Err() == nil {
		f, err := src.ReadFrame(ctx)
		switch {
		case err == nil:
			c.deliver(f, rate, &attached, meter)
		case errors.Is(err, source.ErrNoFrame):
			sleep(ctx, pause)
		case ctx.Err() != nil:
			return
		case errors.Is(err, source.ErrEndOfStream):
			c.emit(status.Info, status.EndOfStream, "play", "end of stream after %d frames", c.framesPlayed.Load())
			return
		default:
			c.fail(status.MidStreamReadError, "play", err)
			return
		}
	}
}

// firstFrame polls the source until a frame arrives, within the first frame budget.
func (c *Controller) firstFrame(ctx context.Context, src source.FrameSource) (*media.Frame, error) {
	tctx, cancel := context.WithTimeout(ctx, c.opts.FirstFrameTimeout)
	defer cancel()
	stopInterrupt := context.AfterFunc(tctx, func() {
		if ctx.Err() == nil {
			src.Interrupt()
		}
	})
	defer stopInterrupt()

	for {
		f, err := src.ReadFrame(tctx)
		switch {
		case err == nil:
			return f, nil
		case tctx.Err() != nil:
			return nil, fmt.Errorf("no frame within %s: %w", c.opts.FirstFrameTimeout, tctx.Err())
		case errors.Is(err, source.ErrEndOfStream):
			return nil, fmt.Errorf("stream ended before the first frame: %w", err)
		case errors.Is(err, source.ErrNoFrame):
			sleep(tctx, noFramePause)
		default:
			return nil, err
		}
	}
}

// enterPlaying applies Starting to Playing on the dispatcher and waits until it has run.
// The closure only applies to the session identified by done; a closure that runs after
// its session was stopped leaves a newer session alone.
func (c *Controller) enterPlaying(ctx context.Context, done chan struct{}, negotiated media.Metadata) bool {
	applied := make(chan bool, 1)
	c.opts.Dispatcher.Post(func() {
		c.mu.Lock()
		ok := c.playDone == done && c.playState == PlayStarting && !c.stopPending
		if ok {
			c.playState = PlayPlaying
			c.negotiated = negotiated
		}
		c.mu.Unlock()
		if ok {
			c.emit(status.Info, status.Playing, "play", "playing %s", negotiated)
		}
		applied <- ok
	})

	select {
	case ok := <-applied:
		return ok
	case <-ctx.Done():
		return false
	}
}

// deliver hands a frame to the display sinks and to the attached record queue.
func (c *Controller) deliver(f *media.Frame, rate float64, attached **recording.Queue, meter *rateMeter) {
	if fps, ok := meter.tick(time.Now()); ok {
		c.fps.Store(math.Float64bits(fps))
	}
	c.lastFrame.Store(f)
	c.latest.OnFrame(f)
	if c.opts.Display != nil {
		c.opts.Display.OnFrame(f)
	}

	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	if q != *attached {
		*attached = q
		if q != nil {
			q.AnnounceRate(rate)
		}
	}
	if q != nil {
		q.Push(f)
	}
	c.framesPlayed.Add(1)
}

// finishPlay runs when the capture goroutine exits, whatever the reason.
func (c *Controller) finishPlay(done chan struct{}) {
	c.requestStop("capture")

	c.mu.Lock()
	recordDone := c.recordDone
	c.mu.Unlock()
	if recordDone != nil {
		<-recordDone
	}

	c.mu.Lock()
	c.playState = PlayNone
	c.stopPending = false
	c.cancel = nil
	played := c.framesPlayed.Load()
	c.mu.Unlock()

	c.emit(status.Info, status.PlayStopped, "stop", "stopped after %d frames", played)
	close(done)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
