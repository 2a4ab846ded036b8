// Package gstreamer captures frames from remote grabbers and machine vision cameras
// through GStreamer pipelines ending in an appsink.
package gstreamer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/source"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

const (
	// capsWait bounds how long Open waits for the negotiated caps of the first sample.
	capsWait    = 5 * time.Second
	busPoll     = 50 * time.Millisecond
	appsinkName = "sink"
)

var initOnce sync.Once

func initGst() {
	initOnce.Do(func() { gst.Init(nil) })
}

// appsinkSource runs a pipeline description whose last element is an appsink named
// "sink". Samples are copied and handed over through a one slot channel where a newer
// frame replaces one that was not read yet.
type appsinkSource struct {
	name        string
	description string
	id          string

	pipeline *gst.Pipeline
	sink     *app.Sink
	frames   chan *media.Frame
	busErr   chan error

	stopOnce  sync.Once
	interrupt chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	mu        sync.Mutex
	caps      string
	meta      media.Metadata
	capsReady chan struct{}
	capsOnce  sync.Once
	start     time.Time
	seq       uint64
	dropped   uint64
}

func newAppsinkSource(name, description string) *appsinkSource {
	return &appsinkSource{
		name:        name,
		description: description,
		id:          uuid.NewString(),
		frames:      make(chan *media.Frame, 1),
		busErr:      make(chan error, 1),
		interrupt:   make(chan struct{}),
		done:        make(chan struct{}),
		capsReady:   make(chan struct{}),
	}
}

// Open starts the pipeline and waits briefly for the first sample so the reported
// metadata carries the negotiated rate. requested fills what the caps leave out.
func (s *appsinkSource) Open(ctx context.Context, requested media.Metadata) (media.Metadata, error) {
	initGst()
	logging.InfoLogger.Printf("%s: pipeline %s (%s)", s.name, s.description, s.id)

	pipeline, err := gst.NewPipelineFromString(s.description)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("creating pipeline: %w", err)
	}
	elem, err := pipeline.GetElementByName(appsinkName)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("pipeline has no appsink: %w", err)
	}
	s.pipeline = pipeline
	s.sink = app.SinkFromElement(elem)
	s.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onSample,
	})

	s.start = time.Now()
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return media.Metadata{}, fmt.Errorf("starting pipeline: %w", err)
	}
	s.wg.Add(1)
	go s.watchBus()

	timer := time.NewTimer(capsWait)
	defer timer.Stop()
	select {
	case <-s.capsReady:
		s.mu.Lock()
		m := s.meta
		s.mu.Unlock()
		return m.Or(requested), nil
	case err := <-s.busErr:
		return media.Metadata{}, err
	case <-timer.C:
		return requested, nil
	case <-s.interrupt:
		return media.Metadata{}, source.ErrClosed
	case <-ctx.Done():
		return media.Metadata{}, ctx.Err()
	}
}

func (s *appsinkSource) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	m, ok := s.metadata(sample)
	if !ok {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	// GStreamer reuses the buffer
	copied := make([]byte, len(data))
	copy(copied, data)
	buffer.Unmap()

	packed, err := pack(copied, m)
	if err != nil {
		logging.WarningLogger.Printf("%s: %v", s.name, err)
		return gst.FlowOK
	}

	s.mu.Lock()
	s.seq++
	f := &media.Frame{
		Data:      packed,
		Format:    m.Format,
		Width:     m.Width,
		Height:    m.Height,
		Timestamp: time.Since(s.start).Seconds(),
		Seq:       s.seq,
	}
	s.mu.Unlock()

	for {
		select {
		case s.frames <- f:
			return gst.FlowOK
		default:
		}
		select {
		case <-s.frames:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		default:
		}
	}
}

// metadata parses the caps of sample, once per distinct caps string.
func (s *appsinkSource) metadata(sample *gst.Sample) (media.Metadata, bool) {
	caps := sample.GetCaps()
	if caps == nil {
		return media.Metadata{}, false
	}
	str := caps.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if str == s.caps {
		return s.meta, true
	}
	m, err := parseCaps(str)
	if err != nil {
		logging.WarningLogger.Printf("%s: %v", s.name, err)
		return media.Metadata{}, false
	}
	if s.caps != "" {
		logging.InfoLogger.Printf("%s: caps changed to %s", s.name, str)
	}
	s.caps, s.meta = str, m
	s.capsOnce.Do(func() { close(s.capsReady) })
	return m, true
}

func (s *appsinkSource) watchBus() {
	defer s.wg.Done()
	bus := s.pipeline.GetPipelineBus()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		msg := bus.TimedPop(busPoll)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			s.report(source.ErrEndOfStream)
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			logging.ErrorLogger.Printf("%s: %s (%s)", s.name, gerr.Error(), gerr.DebugString())
			s.report(fmt.Errorf("pipeline error: %s", gerr.Error()))
			return
		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			logging.WarningLogger.Printf("%s: %s", s.name, gerr.Error())
		}
	}
}

func (s *appsinkSource) report(err error) {
	select {
	case s.busErr <- err:
	default:
	}
}

// ReadFrame waits for the next frame. Frames already handed over are returned
// before an end of stream or a pipeline error.
func (s *appsinkSource) ReadFrame(ctx context.Context) (*media.Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	default:
	}
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.busErr:
		s.report(err)
		return nil, err
	case <-s.interrupt:
		return nil, source.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped counts frames replaced before the capture loop read them.
func (s *appsinkSource) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *appsinkSource) Interrupt() {
	s.stopOnce.Do(func() { close(s.interrupt) })
}

func (s *appsinkSource) Close() error {
	s.Interrupt()
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	s.wg.Wait()
	if s.pipeline == nil {
		return nil
	}
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("stopping pipeline: %w", err)
	}
	return nil
}
