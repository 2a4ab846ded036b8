package player

import "time"

// rateMeter measures frames per wall clock second over windows of at least one second.
type rateMeter struct {
	start time.Time
	count int
}

func newRateMeter(now time.Time) *rateMeter {
	return &rateMeter{start: now}
}

// tick counts a frame and returns the rate of the window it closes, if any.
func (m *rateMeter) tick(now time.Time) (float64, bool) {
	m.count++
	elapsed := now.Sub(m.start)
	if elapsed < time.Second {
		return 0, false
	}
	fps := float64(m.count) / elapsed.Seconds()
	m.count = 0
	m.start = now
	return fps, true
}
