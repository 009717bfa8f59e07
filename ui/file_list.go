package ui

import (
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"anime-dubber/models"
)

var videoExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}

// FileList is the queue of videos to dub. Jobs are owned by MainUI; the list
// only renders them.
type FileList struct {
	jobs          []*models.Job
	list          *widget.List
	selectedIndex int
	window        fyne.Window

	onFileAdded    func(path string)
	onFileRemoved  func(index int)
	onFileSelected func(index int)
}

func NewFileList(onAdded func(string), onRemoved func(int), onSelected func(int)) *FileList {
	fl := &FileList{
		selectedIndex:  -1,
		onFileAdded:    onAdded,
		onFileRemoved:  onRemoved,
		onFileSelected: onSelected,
	}

	fl.list = widget.NewList(
		func() int { return len(fl.jobs) },
		func() fyne.CanvasObject {
			return container.NewVBox(
				container.NewHBox(
					widget.NewLabel("⏳"),
					widget.NewLabel("episode.mkv"),
					widget.NewLabel(""),
				),
				widget.NewLabel(""),
			)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if int(id) >= len(fl.jobs) {
				return
			}
			job := fl.jobs[id]
			box := obj.(*fyne.Container)
			topRow := box.Objects[0].(*fyne.Container)
			detail := box.Objects[1].(*widget.Label)

			topRow.Objects[0].(*widget.Label).SetText(job.StatusIcon())
			topRow.Objects[1].(*widget.Label).SetText(filepath.Base(job.SourcePath))
			topRow.Objects[2].(*widget.Label).SetText(modeTag(job))
			detail.SetText(jobDetail(job))
		},
	)

	fl.list.OnSelected = func(id widget.ListItemID) {
		fl.selectedIndex = int(id)
		if fl.onFileSelected != nil {
			fl.onFileSelected(fl.selectedIndex)
		}
	}

	return fl
}

func modeTag(job *models.Job) string {
	if job.Mode == models.ModeSubtitles {
		return "[subtitles]"
	}
	return "[speech]"
}

func jobDetail(job *models.Job) string {
	switch job.Status {
	case models.StatusMerged:
		return "→ " + job.OutputPath()
	case models.StatusNotStarted:
		return ""
	default:
		return job.StatusText()
	}
}

func (fl *FileList) SetWindow(w fyne.Window) {
	fl.window = w
}

func (fl *FileList) Build() fyne.CanvasObject {
	return fl.list
}

func (fl *FileList) BuildButtons() fyne.CanvasObject {
	addBtn := widget.NewButton("Add Files", fl.showFileDialog)
	addFolderBtn := widget.NewButton("Add Folder", fl.showFolderDialog)
	removeBtn := widget.NewButton("Remove", fl.removeSelected)

	return container.NewHBox(addBtn, addFolderBtn, removeBtn)
}

func (fl *FileList) showFileDialog() {
	if fl.window == nil {
		return
	}

	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()
		fl.addFile(reader.URI().Path())
	}, fl.window)

	fd.SetFilter(storage.NewExtensionFileFilter(videoExtensions))
	fd.Show()
}

func (fl *FileList) showFolderDialog() {
	if fl.window == nil {
		return
	}

	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		items, err := uri.List()
		if err != nil {
			dialog.ShowError(err, fl.window)
			return
		}
		for _, item := range items {
			if isVideo(item.Path()) {
				fl.addFile(item.Path())
			}
		}
	}, fl.window)

	fd.Show()
}

func isVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func (fl *FileList) addFile(path string) {
	if fl.onFileAdded != nil {
		fl.onFileAdded(path)
	}
}

func (fl *FileList) removeSelected() {
	if fl.selectedIndex < 0 || fl.selectedIndex >= len(fl.jobs) {
		return
	}
	if fl.onFileRemoved != nil {
		fl.onFileRemoved(fl.selectedIndex)
	}
	fl.selectedIndex = -1
	fl.list.UnselectAll()
}

func (fl *FileList) GetSelectedIndex() int {
	return fl.selectedIndex
}

func (fl *FileList) Refresh() {
	fl.list.Refresh()
}

// SetJobs replaces the rendered jobs.
func (fl *FileList) SetJobs(jobs []*models.Job) {
	fl.jobs = jobs
	fl.list.Refresh()
}
