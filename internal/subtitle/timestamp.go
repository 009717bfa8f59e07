package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimestamp reads an SRT timestamp. A dot is accepted in place of the
// comma before the milliseconds.
func ParseTimestamp(ts string) (time.Duration, error) {
	var h, m, s, ms int
	n, err := fmt.Sscanf(strings.Replace(strings.TrimSpace(ts), ".", ",", 1), "%d:%d:%d,%d", &h, &m, &s, &ms)
	if err != nil || n != 4 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(ms)*time.Millisecond, nil
}

// FormatTimestamp renders d as 00:00:00,000. Negative durations clamp to zero.
func FormatTimestamp(d time.Duration) string {
	d = max(d, 0)
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
