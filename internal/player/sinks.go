package player

import (
	"sync"

	"github.com/owlcms/recorder/internal/media"
	"github.com/owlcms/recorder/internal/status"
)

// DisplaySink receives every captured frame on the capture goroutine. It must return quickly.
type DisplaySink interface {
	OnFrame(f *media.Frame)
}

// DisplayFunc adapts a function to DisplaySink.
type DisplayFunc func(f *media.Frame)

func (fn DisplayFunc) OnFrame(f *media.Frame) { fn(f) }

// LogSink receives status and error events.
type LogSink interface {
	OnEvent(ev status.Event)
}

// LogFunc adapts a function to LogSink.
type LogFunc func(ev status.Event)

func (fn LogFunc) OnEvent(ev status.Event) { fn(ev) }

// Dispatcher runs closures on the context where caller-visible state changes are applied.
// Closures posted to one dispatcher run at most once and in order.
type Dispatcher interface {
	Post(fn func())
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func())

func (d DispatchFunc) Post(fn func()) { d(fn) }

// Immediate runs closures on the posting goroutine.
var Immediate = DispatchFunc(func(fn func()) { fn() })

// SerialDispatcher runs posted closures one at a time on its own goroutine. Post never blocks.
type SerialDispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewSerialDispatcher starts the dispatch goroutine.
func NewSerialDispatcher() *SerialDispatcher {
	d := &SerialDispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *SerialDispatcher) Post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = append(d.pending, fn)
	d.cond.Signal()
}

// Close stops the dispatcher once the closures already posted have run.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.done
}

func (d *SerialDispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.pending) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.pending[0]
		d.pending[0] = nil
		d.pending = d.pending[1:]
		d.mu.Unlock()
		fn()
	}
}
