// Package subtitle holds the timed text lines read off video frames and
// their SRT encoding.
package subtitle

import (
	"strings"
	"time"
)

// Cue is one subtitle shown from Start until End.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Track is a sequence of cues in display order.
type Track []Cue

// Lines returns the trimmed text of every cue that has any.
func (t Track) Lines() []string {
	lines := make([]string, 0, len(t))
	for _, c := range t {
		if s := strings.TrimSpace(c.Text); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// Text returns Lines one per line, each newline-terminated.
func (t Track) Text() string {
	var b strings.Builder
	for _, l := range t.Lines() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
