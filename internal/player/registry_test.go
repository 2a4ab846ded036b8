package player

import (
	"context"
	"testing"
	"time"

	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	sources := sourceFunc(func(config.PlayerConfig) (source.FrameSource, error) {
		return &fakeSource{frames: -1, pace: 5 * time.Millisecond, rate: 10}, nil
	})
	r := NewRegistry(Options{Sources: sources, Encoders: openRawFunc, Log: &eventLog{}})
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := newTestRegistry(t)

	a, err := r.Add(testPlayer(t))
	require.NoError(t, err)
	second := testPlayer(t)
	second.Name = "warmup"
	b, err := r.Add(second)
	require.NoError(t, err)

	_, err = r.Add(testPlayer(t))
	assert.Error(t, err, "duplicate name")
	invalid := testPlayer(t)
	invalid.Name = "broken"
	invalid.Decoder.Input = ""
	_, err = r.Add(invalid)
	assert.Error(t, err)

	got, ok := r.Get("warmup")
	require.True(t, ok)
	assert.Same(t, b, got)
	got, ok = r.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []*Controller{a, b}, r.List())

	require.True(t, a.Play())
	require.NoError(t, r.Remove(context.Background(), "platform"))
	assert.Equal(t, PlayNone, a.PlayState())
	_, ok = r.Get("platform")
	assert.False(t, ok)
	assert.Error(t, r.Remove(context.Background(), "platform"))

	require.True(t, b.Play())
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_ = r.Remove(cancelled, "warmup")
	assert.Empty(t, r.List())
	require.NoError(t, b.Wait(context.Background()))
	assert.Equal(t, PlayNone, b.PlayState())
}

func TestRegistryShutdown(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"one", "two", "three"} {
		cfg := testPlayer(t)
		cfg.Name = name
		c, err := r.Add(cfg)
		require.NoError(t, err)
		require.True(t, c.Play())
	}
	assert.True(t, r.IsAnyActive())

	one, _ := r.Get("one")
	require.Eventually(t, func() bool { return one.PlayState() == PlayPlaying }, waitFor, tick)
	require.True(t, one.Record())
	require.Eventually(t, func() bool { return one.RecordState() == RecordRecording }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	assert.False(t, r.IsAnyActive())
	for _, st := range r.Stats() {
		assert.Equal(t, PlayNone, st.PlayState)
		assert.Equal(t, RecordNone, st.RecordState)
	}
	cfgs := r.Configs()
	require.Len(t, cfgs, 3)
	assert.Equal(t, 1, cfgs[0].Increment)
	assert.Equal(t, 0, cfgs[1].Increment)
}
