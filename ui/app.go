package ui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"anime-dubber/internal/history"
	"anime-dubber/internal/logger"
	"anime-dubber/internal/media"
	"anime-dubber/internal/progress"
	"anime-dubber/models"
	"anime-dubber/services"
)

// Run opens the main window and blocks until it is closed. store may be nil.
func Run(cfg *models.Config, log *logger.Logger, store *history.Store) {
	a := app.NewWithID("com.animedubber.app")
	a.Settings().SetTheme(&DubberTheme{})

	w := a.NewWindow("Anime Dubber")
	w.Resize(fyne.NewSize(1000, 700))

	mainUI := NewMainUI(w, cfg, log, store)
	w.SetContent(mainUI.Build())
	w.SetCloseIntercept(func() {
		mainUI.CancelRunning()
		w.Close()
	})

	w.ShowAndRun()
}

// MainUI is the main window. Jobs run one at a time on a background
// goroutine; every widget update goes through fyne.Do.
type MainUI struct {
	window fyne.Window
	cfg    *models.Config
	log    *logger.Logger
	store  *history.Store

	jobs []*models.Job

	fileList      *FileList
	progressPanel *ProgressPanel
	form          *JobForm

	dubSelectedBtn *widget.Button
	dubAllBtn      *widget.Button
	cancelBtn      *widget.Button

	mu      sync.Mutex
	running *services.Pipeline
	stop    context.CancelFunc
}

func NewMainUI(w fyne.Window, cfg *models.Config, log *logger.Logger, store *history.Store) *MainUI {
	return &MainUI{
		window: w,
		cfg:    cfg,
		log:    log,
		store:  store,
	}
}

// Build creates the complete UI layout
func (ui *MainUI) Build() fyne.CanvasObject {
	ui.fileList = NewFileList(ui.onFileAdded, ui.onFileRemoved, ui.onFileSelected)
	ui.fileList.SetWindow(ui.window)

	ui.progressPanel = NewProgressPanel()
	ui.form = NewJobForm(ui.cfg)

	ui.dubSelectedBtn = widget.NewButton("Dub Selected", ui.onDubSelected)
	ui.dubSelectedBtn.Importance = widget.HighImportance
	ui.dubAllBtn = widget.NewButton("Dub All", ui.onDubAll)
	ui.cancelBtn = widget.NewButton("Cancel", ui.onCancel)
	ui.cancelBtn.Disable()

	controls := container.NewHBox(
		widget.NewButton("Discard Progress", ui.onDiscard),
		widget.NewButton("History", ui.showHistory),
		widget.NewButton("Check Tools", ui.showToolCheck),
		layout.NewSpacer(),
		ui.cancelBtn,
		ui.dubAllBtn,
		ui.dubSelectedBtn,
	)

	left := container.NewBorder(ui.fileList.BuildButtons(), nil, nil, nil, ui.fileList.Build())
	right := container.NewVScroll(container.NewPadded(ui.progressPanel.Build()))

	split := container.NewHSplit(left, right)
	split.SetOffset(0.4)

	bottom := container.NewVBox(ui.form.Build(), container.NewPadded(controls))
	return container.NewBorder(nil, bottom, nil, nil, split)
}

func (ui *MainUI) onFileAdded(path string) {
	for _, job := range ui.jobs {
		if job.SourcePath == path {
			return
		}
	}
	job := ui.form.NewJob(path)
	ui.jobs = append(ui.jobs, job)
	ui.fileList.SetJobs(ui.jobs)
}

func (ui *MainUI) onFileRemoved(index int) {
	if index < 0 || index >= len(ui.jobs) {
		return
	}
	if ui.isRunning(ui.jobs[index]) {
		dialog.ShowInformation("Busy", "Cancel the job before removing it.", ui.window)
		return
	}
	ui.jobs = append(ui.jobs[:index], ui.jobs[index+1:]...)
	ui.fileList.SetJobs(ui.jobs)
	ui.progressPanel.SetCurrentJob(nil)
}

func (ui *MainUI) onFileSelected(index int) {
	if index >= 0 && index < len(ui.jobs) {
		ui.progressPanel.SetCurrentJob(ui.jobs[index])
	}
}

func (ui *MainUI) selectedJob() *models.Job {
	i := ui.fileList.GetSelectedIndex()
	if i < 0 || i >= len(ui.jobs) {
		return nil
	}
	return ui.jobs[i]
}

func (ui *MainUI) onDubSelected() {
	job := ui.selectedJob()
	if job == nil {
		dialog.ShowInformation("No Selection", "Please select a video to dub.", ui.window)
		return
	}
	if job.Status == models.StatusMerged {
		dialog.ShowInformation("Already Dubbed", "This video has already been dubbed.", ui.window)
		return
	}
	ui.start([]*models.Job{job})
}

func (ui *MainUI) onDubAll() {
	var pending []*models.Job
	for _, job := range ui.jobs {
		if job.Status != models.StatusMerged {
			pending = append(pending, job)
		}
	}
	if len(pending) == 0 {
		dialog.ShowInformation("No Files", "No videos left to dub.", ui.window)
		return
	}
	ui.start(pending)
}

// start runs jobs in order on a background goroutine. A job that fails does
// not stop the queue; cancelling does.
func (ui *MainUI) start(jobs []*models.Job) {
	ui.mu.Lock()
	if ui.stop != nil {
		ui.mu.Unlock()
		dialog.ShowInformation("Busy", "A job is already running.", ui.window)
		return
	}
	ctx, stop := context.WithCancel(context.Background())
	ui.stop = stop
	ui.mu.Unlock()

	cfg := *ui.cfg
	ui.form.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		ui.finish()
		dialog.ShowError(err, ui.window)
		return
	}
	ui.setBusy(true)

	go func() {
		defer ui.finish()

		var failed []string
		for i, job := range jobs {
			ui.progressPanel.SetStatus(fmt.Sprintf("Video %d of %d", i+1, len(jobs)))
			res, err := ui.runJob(ctx, &cfg, job)
			switch {
			case err != nil:
				failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(job.SourcePath), err))
			case res.Status == models.StatusCancelled:
				fyne.Do(func() {
					ui.refresh()
					dialog.ShowInformation("Cancelled", "Progress was saved. Dub the video again to resume.", ui.window)
				})
				return
			}
			if ctx.Err() != nil {
				return
			}
		}

		fyne.Do(func() {
			ui.refresh()
			if len(failed) > 0 {
				dialog.ShowError(errors.New(strings.Join(failed, "\n")), ui.window)
				return
			}
			if len(jobs) == 1 {
				ui.showCompleted(jobs[0])
				return
			}
			dialog.ShowInformation("Complete", fmt.Sprintf("All %d videos dubbed!", len(jobs)), ui.window)
		})
	}()
}

func (ui *MainUI) runJob(ctx context.Context, cfg *models.Config, job *models.Job) (*services.Result, error) {
	providers, err := services.NewProviders(cfg, services.StagePrefix(job), ui.log)
	if err != nil {
		job.Fail(err)
		return nil, err
	}
	p := services.NewPipeline(cfg, providers, ui.log)
	if ui.store != nil {
		p.SetHistory(ui.store)
	}

	ui.mu.Lock()
	ui.running = p
	ui.mu.Unlock()
	defer func() {
		ui.mu.Lock()
		ui.running = nil
		ui.mu.Unlock()
	}()

	sink := progress.Func(func(percent int, label string) {
		fyne.Do(func() {
			ui.fileList.Refresh()
			if ui.selectedJob() == job {
				ui.progressPanel.Update()
				ui.progressPanel.Report(percent, label)
			}
		})
	})

	ui.log.Info("Dubbing %s (%s)", filepath.Base(job.SourcePath), job.Mode)
	return p.Run(ctx, job, progress.Monotonic(sink))
}

func (ui *MainUI) isRunning(job *models.Job) bool {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.stop != nil && job.Status != models.StatusNotStarted &&
		job.Status != models.StatusMerged && job.Status != models.StatusFailed && job.Status != models.StatusCancelled
}

func (ui *MainUI) finish() {
	ui.mu.Lock()
	if ui.stop != nil {
		ui.stop()
		ui.stop = nil
	}
	ui.mu.Unlock()
	fyne.Do(func() {
		ui.setBusy(false)
		ui.refresh()
	})
}

func (ui *MainUI) setBusy(busy bool) {
	if busy {
		ui.dubSelectedBtn.Disable()
		ui.dubAllBtn.Disable()
		ui.cancelBtn.Enable()
		return
	}
	ui.dubSelectedBtn.Enable()
	ui.dubAllBtn.Enable()
	ui.cancelBtn.Disable()
}

func (ui *MainUI) refresh() {
	ui.fileList.Refresh()
	ui.progressPanel.Update()
}

// onCancel asks the running pipeline to stop after its current stage.
func (ui *MainUI) onCancel() {
	ui.mu.Lock()
	p := ui.running
	ui.mu.Unlock()
	if p != nil {
		p.Cancel()
		ui.progressPanel.SetStatus("Stopping after the current stage...")
	}
}

// CancelRunning aborts the running job immediately. Used when the window
// closes.
func (ui *MainUI) CancelRunning() {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	if ui.stop != nil {
		ui.stop()
	}
}

func (ui *MainUI) onDiscard() {
	job := ui.selectedJob()
	if job == nil {
		dialog.ShowInformation("No Selection", "Please select a video.", ui.window)
		return
	}
	if ui.isRunning(job) {
		dialog.ShowInformation("Busy", "Cancel the job before discarding its progress.", ui.window)
		return
	}

	dialog.ShowConfirm("Discard Progress",
		fmt.Sprintf("Delete saved progress for %s? The next run starts from the beginning.", filepath.Base(job.SourcePath)),
		func(ok bool) {
			if !ok {
				return
			}
			if err := services.NewPipeline(ui.cfg, services.Providers{}, ui.log).Discard(job); err != nil {
				dialog.ShowError(err, ui.window)
				return
			}
			fresh := models.NewJob(job.SourcePath, job.OutputDir, job.OutputName)
			fresh.Mode, fresh.Normalize, fresh.Keep = job.Mode, job.Normalize, job.Keep
			*job = *fresh
			ui.refresh()
		}, ui.window)
}

func (ui *MainUI) showCompleted(job *models.Job) {
	dialog.ShowCustomConfirm("Complete", "Open Folder", "Close",
		widget.NewLabel("Dubbed video saved to\n"+job.OutputPath()),
		func(open bool) {
			if open {
				if err := openFolder(filepath.Dir(job.OutputPath())); err != nil {
					ui.log.Warn("Failed to open folder: %v", err)
				}
			}
		}, ui.window)
}

func (ui *MainUI) showHistory() {
	if ui.store == nil {
		dialog.ShowInformation("History", "Job history is unavailable.", ui.window)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, err := ui.store.List(ctx, 50)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	list := widget.NewList(
		func() int { return len(entries) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			en := entries[id]
			text := fmt.Sprintf("%s  %s  %s  %s",
				en.RecordedAt.Local().Format(time.DateTime), filepath.Base(en.Source), en.Mode, en.Status)
			if en.Error != "" {
				text += "  " + en.Error
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	d := dialog.NewCustom("History", "Close", list, ui.window)
	d.Resize(fyne.NewSize(760, 420))
	d.Show()
}

func (ui *MainUI) showToolCheck() {
	cfg := *ui.cfg
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var lines []string
		check := func(name string, err error) {
			if err != nil {
				lines = append(lines, fmt.Sprintf("✗ %s: %v", name, err))
			} else {
				lines = append(lines, "✓ "+name)
			}
		}
		check("ffmpeg", media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, ui.log).CheckInstalled(ctx))
		check("tesseract", services.NewTesseract(cfg.TesseractPath, cfg.OCRLanguage).CheckInstalled(ctx))

		fyne.Do(func() {
			dialog.ShowInformation("Tools", strings.Join(lines, "\n"), ui.window)
		})
	}()
}

func openFolder(dir string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", dir)
	case "windows":
		cmd = exec.Command("explorer", dir)
	default:
		cmd = exec.Command("xdg-open", dir)
	}
	return cmd.Start()
}
