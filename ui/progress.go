package ui

import (
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"anime-dubber/internal/progress"
	"anime-dubber/models"
)

// ProgressPanel shows the selected job: its plan with per-stage state, the
// overall bar and the latest label. It is a progress.Sink; Report may be
// called from the pipeline goroutine.
type ProgressPanel struct {
	progressBar *widget.ProgressBar
	statusLabel *widget.Label
	fileLabel   *widget.Label
	outputLabel *widget.Label
	stageBox    *fyne.Container
	stageLabels map[models.Stage]*widget.Label

	currentJob *models.Job
}

var _ progress.Sink = (*ProgressPanel)(nil)

func NewProgressPanel() *ProgressPanel {
	return &ProgressPanel{
		progressBar: widget.NewProgressBar(),
		statusLabel: widget.NewLabel("No file selected"),
		fileLabel:   widget.NewLabel(""),
		outputLabel: widget.NewLabel(""),
		stageBox:    container.NewVBox(),
		stageLabels: make(map[models.Stage]*widget.Label),
	}
}

func (p *ProgressPanel) Build() fyne.CanvasObject {
	p.progressBar.Min = 0
	p.progressBar.Max = 100
	p.outputLabel.Wrapping = fyne.TextWrapBreak
	p.statusLabel.Wrapping = fyne.TextWrapWord

	return container.NewVBox(
		p.fileLabel,
		widget.NewSeparator(),
		widget.NewLabel("Stages:"),
		p.stageBox,
		widget.NewSeparator(),
		widget.NewLabel("Progress:"),
		p.progressBar,
		p.statusLabel,
		widget.NewSeparator(),
		widget.NewLabel("Output:"),
		p.outputLabel,
	)
}

// SetCurrentJob switches the panel to job and rebuilds the stage list from
// its plan. Must run on the UI goroutine.
func (p *ProgressPanel) SetCurrentJob(job *models.Job) {
	p.currentJob = job
	p.stageBox.RemoveAll()
	p.stageLabels = make(map[models.Stage]*widget.Label)
	if job != nil {
		for _, st := range job.Plan() {
			l := widget.NewLabel("")
			p.stageLabels[st] = l
			p.stageBox.Add(l)
		}
	}
	p.Update()
}

// Update redraws the panel from the current job. Must run on the UI goroutine.
func (p *ProgressPanel) Update() {
	job := p.currentJob
	if job == nil {
		p.fileLabel.SetText("No file selected")
		p.statusLabel.SetText("-")
		p.outputLabel.SetText("")
		p.progressBar.SetValue(0)
		return
	}

	p.fileLabel.SetText(fmt.Sprintf("File: %s", filepath.Base(job.SourcePath)))
	p.statusLabel.SetText(fmt.Sprintf("%s %s", job.StatusIcon(), job.StatusText()))
	p.outputLabel.SetText(job.OutputPath())
	p.progressBar.SetValue(float64(job.Progress))

	for _, st := range job.Plan() {
		if l, ok := p.stageLabels[st]; ok {
			l.SetText(stageLine(job, st))
		}
	}
}

// stageLine renders one row of the stage list. The first stage without an
// artifact is the one running, or the one that failed.
func stageLine(job *models.Job, st models.Stage) string {
	for _, s := range job.Plan() {
		if _, done := job.Artifacts[s]; done {
			if s == st {
				return "✓ " + st.Label()
			}
			continue
		}
		if s != st {
			break
		}
		switch job.Status {
		case models.StatusFailed:
			return "✗ " + st.Label()
		case models.StatusNotStarted, models.StatusCancelled:
		default:
			return "▶ " + st.Label()
		}
		break
	}
	return "· " + st.Label()
}

// Report implements progress.Sink.
func (p *ProgressPanel) Report(percent int, label string) {
	fyne.Do(func() {
		p.progressBar.SetValue(float64(progress.Clamp(percent)))
		if label != "" {
			p.statusLabel.SetText(label)
		}
	})
}

// SetStatus shows a free-form message. Safe from any goroutine.
func (p *ProgressPanel) SetStatus(status string) {
	fyne.Do(func() {
		p.statusLabel.SetText(status)
	})
}
