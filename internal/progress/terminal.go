package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	terminalLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	terminalMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	terminalDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// Terminal renders a single, continuously redrawn progress line.
type Terminal struct {
	mu        sync.Mutex
	out       io.Writer
	bar       progress.Model
	lastLabel string
	lastPct   int
	finished  bool
}

// NewTerminal draws to out, typically os.Stderr.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:     out,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		lastPct: -1,
	}
}

func (t *Terminal) Report(percent int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	percent = Clamp(percent)
	if percent == t.lastPct && label == t.lastLabel {
		return
	}
	// A new stage label finishes the previous line so the log keeps a trail.
	if t.lastLabel != "" && label != t.lastLabel && !t.finished {
		fmt.Fprintln(t.out)
	}
	t.lastPct, t.lastLabel = percent, label

	line := fmt.Sprintf("\r%s %s %s",
		t.bar.ViewAs(float64(percent)/100),
		terminalLabelStyle.Render(label),
		terminalMutedStyle.Render(fmt.Sprintf("%3d%%", percent)),
	)
	fmt.Fprint(t.out, line)
	t.finished = false
}

// Finish ends the current line, marking it done when the bar is full.
func (t *Terminal) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished || t.lastPct < 0 {
		return
	}
	if t.lastPct == 100 {
		fmt.Fprint(t.out, " "+terminalDoneStyle.Render("✓"))
	}
	fmt.Fprintln(t.out)
	t.finished = true
}
