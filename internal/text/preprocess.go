// Package text provides language tag helpers and cleanup for recognized text.
package text

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	dotsRegex         = regexp.MustCompile(`\.{4,}`)
	exclamationsRegex = regexp.MustCompile(`!{2,}`)
	questionsRegex    = regexp.MustCompile(`\?{2,}`)
)

// CleanOCR normalizes one frame's OCR output into a single comparable line.
// Control characters such as the form feed tesseract emits are dropped, runs
// of whitespace collapse to one space and repeated punctuation is simplified.
func CleanOCR(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)

	s = whitespaceRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	s = dotsRegex.ReplaceAllString(s, "...")
	s = exclamationsRegex.ReplaceAllString(s, "!")
	s = questionsRegex.ReplaceAllString(s, "?")
	return s
}

// JoinTranscript joins recognized segments with single spaces and trims the
// result. Blank segments contribute nothing.
func JoinTranscript(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}
