package player

import (
	"context"
	"sync"

	"github.com/owlcms/recorder/internal/media"
)

// LatestFrame keeps only the most recent frame. Writers never block; a render loop
// polls Latest or waits for a newer frame with Next.
type LatestFrame struct {
	mu      sync.Mutex
	cond    *sync.Cond
	frame   *media.Frame
	version uint64
	dropped uint64
	read    uint64
}

// NewLatestFrame returns an empty cell.
func NewLatestFrame() *LatestFrame {
	l := &LatestFrame{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// OnFrame replaces the stored frame.
func (l *LatestFrame) OnFrame(f *media.Frame) {
	l.mu.Lock()
	if l.frame != nil && l.read != l.version {
		l.dropped++
	}
	l.frame = f
	l.version++
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Latest returns the stored frame and its version, nil before the first frame.
func (l *LatestFrame) Latest() (*media.Frame, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.read = l.version
	return l.frame, l.version
}

// Next waits for a frame newer than version, or for ctx to end.
func (l *LatestFrame) Next(ctx context.Context, version uint64) (*media.Frame, uint64, error) {
	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	for l.version <= version {
		if err := ctx.Err(); err != nil {
			return nil, version, err
		}
		l.cond.Wait()
	}
	l.read = l.version
	return l.frame, l.version, nil
}

// Dropped counts frames replaced before anyone read them.
func (l *LatestFrame) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
