package player

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/recording"
	"github.com/owlcms/recorder/internal/status"
)

// Record starts a recording session fed by the running capture session.
// It is accepted while play is Starting or Playing and nothing is being recorded.
func (c *Controller) Record() bool {
	c.mu.Lock()
	if (c.playState != PlayStarting && c.playState != PlayPlaying) || c.stopPending {
		state := c.playState
		c.mu.Unlock()
		c.invalid("record", "record requested while %s", state)
		return false
	}
	if c.recordState != RecordNone {
		state := c.recordState
		c.mu.Unlock()
		c.invalid("record", "record requested while already %s", state)
		return false
	}
	if c.opts.Encoders == nil {
		c.mu.Unlock()
		c.fail(status.InternalError, "record", errors.New("no encoder configured"))
		return false
	}

	id := uuid.NewString()
	path := recording.ResolvePath(c.cfg, c.cfg.Increment)
	q := recording.NewQueue(c.opts.QueueSize)
	w := recording.NewWorker(q, c.opts.Encoders, path, c.cfg.Record)
	w.OnOpen = func(opts recording.Options) { c.recordOpened(id, q, opts) }
	w.OnWriteError = func(f *media.Frame, skipped int64, err error) {
		c.emitSession(id, status.Warning, status.FrameWriteFailed, "record", "frame %d skipped (%d so far): %v", f.Seq, skipped, err)
	}
	done := make(chan struct{})
	c.recordState = RecordStarting
	c.queue = q
	c.session = w
	c.sessionQ = q
	c.recordDone = done
	c.recordID = id
	c.mu.Unlock()

	c.emitSession(id, status.Info, status.RecordStarting, "record", "recording to %s", path)
	go c.runRecorder(id, w, q, done)
	return true
}

// StopRecording ends the recording session. Frames already queued are still written.
func (c *Controller) StopRecording() bool {
	switch c.RecordState() {
	case RecordNone:
		c.invalid("stopRecording", "stop recording requested while not recording")
		return false
	case RecordStopping:
		return false
	}
	return c.stopRecording("stopRecording")
}

// stopRecording detaches the queue from the capture goroutine and closes it.
func (c *Controller) stopRecording(phase string) bool {
	c.mu.Lock()
	if c.recordState != RecordStarting && c.recordState != RecordRecording {
		c.mu.Unlock()
		return false
	}
	c.recordState = RecordStopping
	q, id := c.queue, c.recordID
	c.queue = nil
	c.mu.Unlock()

	c.emitSession(id, status.Info, status.RecordStopping, phase, "stopping recording")
	if q != nil {
		q.Close()
	}
	return true
}

func (c *Controller) recordOpened(id string, q *recording.Queue, opts recording.Options) {
	c.mu.Lock()
	ok := c.recordState == RecordStarting && c.queue == q
	if ok {
		c.recordState = RecordRecording
	}
	c.mu.Unlock()
	if ok {
		c.emitSession(id, status.Info, status.Recording, "record", "recording %s as %s %s at %d/%d",
			opts.Output, opts.Container, opts.Codec, opts.Rate.Num, opts.Rate.Den)
	}
}

// runRecorder is the body of the record goroutine of one session.
func (c *Controller) runRecorder(id string, w *recording.Worker, q *recording.Queue, done chan struct{}) {
	var (
		opened   bool
		closeErr error
	)
	defer func() {
		if r := recover(); r != nil {
			c.fail(status.InternalError, "record", fmt.Errorf("record worker panic: %v", r))
		}
		q.Close()

		c.mu.Lock()
		if c.queue == q {
			c.queue = nil
		}
		if opened && c.cfg.HasPlaceholder() {
			c.cfg.Increment++
		}
		c.recordState = RecordNone
		c.recordDone = nil
		c.mu.Unlock()

		st := w.Stats()
		if closeErr != nil {
			c.emitSession(id, status.Warning, status.RecordStopped, "stop", "recorded %d frames to %s, finalizing failed: %v", st.Frames, w.Path(), closeErr)
		} else {
			c.emitSession(id, status.Info, status.RecordStopped, "stop", "recorded %d frames to %s (%d skipped, %d dropped)",
				st.Frames, w.Path(), st.Skipped, q.Dropped())
		}
		close(done)
	}()

	var err error
	opened, err = w.Run()
	if err == nil {
		return
	}
	if opened {
		closeErr = err
		return
	}

	c.mu.Lock()
	if c.recordState != RecordNone {
		c.recordState = RecordStopping
	}
	if c.queue == q {
		c.queue = nil
	}
	c.mu.Unlock()

	kind := status.EncoderOpenFailed
	if errors.Is(err, recording.ErrRateUnavailable) {
		kind = status.RateUnavailable
	}
	c.fail(kind, "record", err)
}
