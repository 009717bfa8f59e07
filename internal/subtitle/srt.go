package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"anime-dubber/internal/atomicfile"
)

// Decode reads SRT cues from r. Cue text spanning several lines is joined
// with spaces; cues without text or with an unreadable header are skipped.
func Decode(r io.Reader) (Track, error) {
	var (
		track Track
		block []string
	)
	flush := func() {
		if c, ok := parseBlock(block); ok {
			track = append(track, c)
		}
		block = block[:0]
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return track, sc.Err()
}

func parseBlock(block []string) (Cue, bool) {
	if len(block) < 3 {
		return Cue{}, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(block[0], "\ufeff"))
	if err != nil {
		return Cue{}, false
	}
	from, to, ok := strings.Cut(block[1], "-->")
	if !ok {
		return Cue{}, false
	}
	start, err := ParseTimestamp(from)
	if err != nil {
		return Cue{}, false
	}
	end, err := ParseTimestamp(to)
	if err != nil {
		return Cue{}, false
	}
	return Cue{Index: idx, Start: start, End: end, Text: strings.Join(block[2:], " ")}, true
}

// ReadFile decodes the SRT file at path.
func ReadFile(path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes t to w in SRT format.
func Encode(w io.Writer, t Track) error {
	bw := bufio.NewWriter(w)
	for i, c := range t {
		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n", c.Index, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text)
	}
	return bw.Flush()
}

// WriteFile replaces path with the SRT encoding of t.
func WriteFile(path string, t Track) error {
	var b strings.Builder
	if err := Encode(&b, t); err != nil {
		return err
	}
	return atomicfile.WriteFile(path, []byte(b.String()))
}
