package media

import "fmt"

// PrettySpace formats a byte count (or a byte rate) as "9.32 GB" or "9.32 GB/s".
func PrettySpace(space float64, isRate bool) string {
	suffix := ""
	if isRate {
		suffix = "/s"
	}
	for _, unit := range []string{"bytes", "KB", "MB", "GB"} {
		if space < 1024.0 {
			return fmt.Sprintf("%3.2f %s%s", space, unit, suffix)
		}
		space /= 1024.0
	}
	return fmt.Sprintf("%3.2f %s%s", space, "TB", suffix)
}

// PrettyTime formats seconds as h:m:s.d, m:s.d or s.d with tenths of a second.
func PrettyTime(seconds float64) string {
	tenths := int64(seconds * 10)
	s, ds := tenths/10, tenths%10
	m, s := s/60, s%60
	h, m := m/60, m%60
	switch {
	case h != 0:
		return fmt.Sprintf("%d:%d:%d.%d", h, m, s, ds)
	case m != 0:
		return fmt.Sprintf("%d:%d.%d", m, s, ds)
	default:
		return fmt.Sprintf("%d.%d", s, ds)
	}
}
