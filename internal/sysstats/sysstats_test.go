package sysstats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1 << 20

func TestLowDisk(t *testing.T) {
	u := Usage{FreeSpace: 10 << 30}
	assert.False(t, u.Low(mib))
	assert.InDelta(t, 10240, u.Remaining(mib), 1e-9)

	assert.True(t, u.Low(100*mib), "less than five minutes left")
	assert.False(t, u.Low(0))
	assert.Zero(t, u.Remaining(0))

	small := Usage{FreeSpace: 4 << 30}
	assert.True(t, small.Low(mib), "less than 5 GiB left")
}

func TestEstimatedSize(t *testing.T) {
	u := Usage{FreeSpace: 10 << 30}

	e := u.EstimatedSize(600, 2, mib)
	assert.Equal(t, 1200.0, e.Seconds)
	assert.Equal(t, 1200.0*mib, e.Bytes)
	assert.False(t, e.Low)
	assert.Equal(t, "Size: 1.17 GB, Time: 20:0.0", e.String())

	assert.True(t, u.EstimatedSize(600, 10, mib).Low)
	assert.Equal(t, 600.0, u.EstimatedSize(600, 0, mib).Seconds)
}

func TestStatsLines(t *testing.T) {
	assert.Equal(t, "FPS: 15.00 (50%), MBps: 2.00 KB/s, Count: 42", InputStats(15, 30, 2048, 42))
	assert.Equal(t, "FPS: 30.00, MBps: 0.00 bytes/s, Count: 0", InputStats(30, 30, 0, 0))
	assert.Equal(t, "Rate: 1.00 MB/s, Size: 1.00 GB, Elapsed: 1:2:5.5, Count: 3",
		OutputStats(mib, 1<<30, 3725.5, 3))

	s := RecordStats("/videos/a_0.avi", 2, Usage{FreeSpace: 4 << 30}, mib)
	assert.Equal(t, "/videos/a_0.avi\nSkipped: 2\nFree: 4.00 GB\nTime remaining: 1:8:16.0 (low)", s)
}

func TestSampler(t *testing.T) {
	s := NewSampler(t.TempDir(), 10*time.Millisecond)
	u, err := s.Refresh()
	require.NoError(t, err)
	assert.Positive(t, u.TotalSpace)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		latest, err := s.Latest()
		return err == nil && latest.Time.After(u.Time)
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	_, err = NewSampler("/does/not/exist", time.Second).Refresh()
	assert.Error(t, err)
}
