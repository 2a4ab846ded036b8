package recording

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayFrame(seq uint64, ts float64) *media.Frame {
	return &media.Frame{
		Data:      make([]byte, 64*48),
		Format:    media.Gray8,
		Width:     64,
		Height:    48,
		Timestamp: ts,
		Seq:       seq,
	}
}

type fakeEncoder struct {
	mu     sync.Mutex
	opts   Options
	pts    []float64
	failOn map[uint64]bool
	bytes  int64
	closed bool
}

func (e *fakeEncoder) WriteFrame(f *media.Frame, pts float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn[f.Seq] {
		return errors.New("codec rejected frame")
	}
	e.pts = append(e.pts, pts)
	e.bytes += int64(len(f.Data))
	return nil
}

func (e *fakeEncoder) BytesWritten() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bytes
}

func (e *fakeEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func TestQueueOrderAndSentinel(t *testing.T) {
	q := NewQueue(4)
	require.True(t, q.AnnounceRate(10))
	for i := 1; i <= 3; i++ {
		require.True(t, q.Push(grayFrame(uint64(i), float64(i))))
	}
	q.Close()
	assert.False(t, q.Push(grayFrame(9, 9)), "push after close")

	it := q.Pop()
	assert.Equal(t, ItemRate, it.Kind)
	assert.Equal(t, 10.0, it.Rate)
	for i := 1; i <= 3; i++ {
		it = q.Pop()
		require.Equal(t, ItemFrame, it.Kind)
		assert.Equal(t, uint64(i), it.Frame.Seq)
	}
	assert.Equal(t, ItemEnd, q.Pop().Kind)
	assert.Equal(t, ItemEnd, q.Pop().Kind)
}

func TestQueueDropsWhenFullButNeverBlocksClose(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Push(grayFrame(1, 0)))
	assert.True(t, q.Push(grayFrame(2, 0)))
	assert.False(t, q.Push(grayFrame(3, 0)))
	assert.Equal(t, uint64(1), q.Dropped())

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a full queue")
	}
	assert.Equal(t, 3, q.Len())
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := NewQueue(1)
	got := make(chan Item)
	go func() { got <- q.Pop() }()

	time.Sleep(10 * time.Millisecond)
	q.Push(grayFrame(7, 0))
	select {
	case it := <-got:
		assert.Equal(t, uint64(7), it.Frame.Seq)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestComputeOptions(t *testing.T) {
	first := grayFrame(1, 0)

	opts, err := ComputeOptions(config.RecordConfig{}, "out.avi", first, 10)
	require.NoError(t, err)
	assert.Equal(t, media.Metadata{Format: media.Gray8, Width: 64, Height: 48, Rate: 10}, opts.Output)
	assert.Equal(t, opts.Output, opts.Input)
	assert.Equal(t, media.Rational{Num: 10, Den: 1}, opts.Rate)
	assert.Equal(t, "avi", opts.Container)
	assert.Equal(t, "rawvideo", opts.Codec)

	opts, err = ComputeOptions(config.RecordConfig{PixFmt: media.YUV420P, Width: 32, Rate: 29.97, Codec: "mpeg4", Container: "mp4"}, "out.mp4", first, 10)
	require.NoError(t, err)
	assert.Equal(t, media.Metadata{Format: media.YUV420P, Width: 32, Height: 48, Rate: 29.97}, opts.Output)
	assert.InDelta(t, 29.97, opts.Rate.Float64(), 1e-6)
	assert.Equal(t, "mpeg4", opts.Codec)

	_, err = ComputeOptions(config.RecordConfig{}, "out.avi", first, 0)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestResolvePath(t *testing.T) {
	p := config.PlayerConfig{OutputDir: "/data", Filename: "cam_{}", Extension: ".avi"}
	assert.Equal(t, filepath.Join("/data", "cam_7.avi"), ResolvePath(p, 7))

	p.Filename = "fixed"
	assert.Equal(t, filepath.Join("/data", "fixed.avi"), ResolvePath(p, 7))
}

func TestWorkerRebasesAndCountsSkips(t *testing.T) {
	enc := &fakeEncoder{failOn: map[uint64]bool{3: true}}
	var opened Options
	q := NewQueue(16)
	w := NewWorker(q, EncoderFunc(func(o Options) (Encoder, error) {
		enc.opts = o
		return enc, nil
	}), filepath.Join(t.TempDir(), "out.avi"), config.RecordConfig{})
	w.OnOpen = func(o Options) { opened = o }
	var skippedSeqs []uint64
	w.OnWriteError = func(f *media.Frame, _ int64, _ error) { skippedSeqs = append(skippedSeqs, f.Seq) }

	q.AnnounceRate(10)
	q.Push(grayFrame(1, 100.0))
	q.Push(grayFrame(2, 100.1))
	q.Push(grayFrame(3, 100.2))
	q.Push(grayFrame(4, 100.1)) // goes back in time
	q.Push(grayFrame(5, 100.4))
	q.Close()

	ok, err := w.Run()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, enc.closed)
	assert.Equal(t, 10.0, opened.Output.Rate)

	require.Len(t, enc.pts, 3)
	assert.InDelta(t, 0.0, enc.pts[0], 1e-9)
	assert.InDelta(t, 0.1, enc.pts[1], 1e-9)
	assert.InDelta(t, 0.4, enc.pts[2], 1e-9)
	assert.Equal(t, []uint64{3, 4}, skippedSeqs)

	stats := w.Stats()
	assert.Equal(t, int64(3), stats.Frames)
	assert.Equal(t, int64(2), stats.Skipped)
	assert.Equal(t, int64(3*64*48), stats.Bytes)
	assert.InDelta(t, 0.4, stats.Elapsed, 1e-9)
}

func TestWorkerOpenFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "out.avi")
	q := NewQueue(4)
	w := NewWorker(q, EncoderFunc(func(o Options) (Encoder, error) {
		require.NoError(t, os.WriteFile(o.Path, []byte("garbage header"), 0644))
		return nil, errors.New("codec not found")
	}), path, config.RecordConfig{})
	w.OnOpen = func(Options) { t.Fatal("OnOpen called after a failed open") }

	q.AnnounceRate(10)
	q.Push(grayFrame(1, 0))
	q.Push(grayFrame(2, 0.1))

	ok, err := w.Run()
	assert.False(t, ok)
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, path, openErr.Path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, q.Push(grayFrame(3, 0.2)), "queue closed after failure")
}

func TestWorkerWithoutRate(t *testing.T) {
	q := NewQueue(4)
	w := NewWorker(q, EncoderFunc(func(Options) (Encoder, error) {
		t.Fatal("encoder opened without a rate")
		return nil, nil
	}), filepath.Join(t.TempDir(), "out.avi"), config.RecordConfig{})
	q.Push(grayFrame(1, 0))

	ok, err := w.Run()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestWorkerStopsWithoutFrames(t *testing.T) {
	q := NewQueue(4)
	w := NewWorker(q, EncoderFunc(func(Options) (Encoder, error) {
		t.Fatal("encoder opened without frames")
		return nil, nil
	}), filepath.Join(t.TempDir(), "out.avi"), config.RecordConfig{})
	q.AnnounceRate(25)
	q.Close()

	ok, err := w.Run()
	assert.False(t, ok)
	assert.NoError(t, err)
}
