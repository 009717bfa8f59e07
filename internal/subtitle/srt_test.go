package subtitle

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03,004"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.in); got != tt.want {
			t.Errorf("FormatTimestamp(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	want := 2*time.Minute + 5*time.Second + 250*time.Millisecond
	for _, in := range []string{"00:02:05,250", "00:02:05.250", " 00:02:05,250 "} {
		got, err := ParseTimestamp(in)
		if err != nil || got != want {
			t.Errorf("ParseTimestamp(%q) = %s, %v; want %s", in, got, err, want)
		}
	}
	if _, err := ParseTimestamp("bogus"); err == nil {
		t.Error("ParseTimestamp(bogus) should fail")
	}
}

func TestWriteAndReadFile(t *testing.T) {
	track := Track{
		{Index: 1, Start: 0, End: 4 * time.Second, Text: "HELLO"},
		{Index: 2, Start: 4 * time.Second, End: 5 * time.Second, Text: "WORLD"},
	}
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := WriteFile(path, track); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d cues, want 2", len(got))
	}
	for i := range track {
		if got[i] != track[i] {
			t.Errorf("cue %d = %+v, want %+v", i, got[i], track[i])
		}
	}
}

func TestDecode_MultiLineAndEmptyCues(t *testing.T) {
	in := "\ufeff1\n00:00:01,000 --> 00:00:02,000\nfirst\nsecond\n\n2\n00:00:03,000 --> 00:00:04,000\n\n"
	got, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d cues, want 1 (empty cue dropped)", len(got))
	}
	if got[0].Index != 1 || got[0].Text != "first second" {
		t.Errorf("cue = %+v", got[0])
	}
}

func TestTrackText(t *testing.T) {
	track := Track{{Text: " a "}, {Text: ""}, {Text: "b"}}
	if got := track.Text(); got != "a\nb\n" {
		t.Errorf("Text() = %q, want %q", got, "a\nb\n")
	}
	if got := track.Lines(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Lines() = %q", got)
	}
}
