package sysstats

import (
	"fmt"

	"github.com/owlcms/recorder/internal/media"
)

// InputStats is the one line summary of a capture session.
func InputStats(fps, rate, bytesPerSecond float64, count int64) string {
	s := fmt.Sprintf("FPS: %.2f", fps)
	if rate > 0 && fps < rate {
		s += fmt.Sprintf(" (%.0f%%)", 100*fps/rate)
	}
	return fmt.Sprintf("%s, MBps: %s, Count: %d", s, media.PrettySpace(bytesPerSecond, true), count)
}

// OutputStats is the one line summary of a recording session.
func OutputStats(bytesPerSecond float64, size int64, elapsed float64, count int64) string {
	return fmt.Sprintf("Rate: %s, Size: %s, Elapsed: %s, Count: %d",
		media.PrettySpace(bytesPerSecond, true), media.PrettySpace(float64(size), false),
		media.PrettyTime(elapsed), count)
}

// RecordStats describes the output file and what is left on its disk.
func RecordStats(path string, skipped int64, u Usage, bytesPerSecond float64) string {
	s := fmt.Sprintf("%s\nSkipped: %d\nFree: %s", path, skipped, media.PrettySpace(float64(u.FreeSpace), false))
	if bytesPerSecond > 0 {
		s += "\nTime remaining: " + media.PrettyTime(u.Remaining(bytesPerSecond))
		if u.Low(bytesPerSecond) {
			s += " (low)"
		}
	}
	return s
}
