package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"anime-dubber/models"
)

const (
	modeSpeechLabel    = "Speech (transcribe audio)"
	modeSubtitlesLabel = "Subtitles (read on-screen text)"
)

var supportedTargetLangs = []string{"English (en)", "Spanish (es)", "French (fr)", "German (de)", "Portuguese (pt)"}

var targetLangCodes = map[string]string{
	"English (en)":    "en",
	"Spanish (es)":    "es",
	"French (fr)":     "fr",
	"German (de)":     "de",
	"Portuguese (pt)": "pt",
}

var voiceGenders = []string{"neutral", "female", "male"}

// keepable lists stages whose artifacts a user may want to inspect.
var keepable = []models.Stage{
	models.StageExtract, models.StageMono, models.StageChunk, models.StageTranscribe,
	models.StageOCR, models.StageNormalize, models.StageTranslate, models.StageSynthesize,
}

// JobForm holds the per-job options applied to a video when it is queued
// and again when it starts.
type JobForm struct {
	modeRadio       *widget.RadioGroup
	normalizeCheck  *widget.Check
	targetLang      *widget.Select
	voiceGender     *widget.Select
	voiceLocale     *widget.Entry
	outputDirEntry  *widget.Entry
	outputNameEntry *widget.Entry
	keepGroup       *widget.CheckGroup
}

func NewJobForm(cfg *models.Config) *JobForm {
	f := &JobForm{}

	f.modeRadio = widget.NewRadioGroup([]string{modeSpeechLabel, modeSubtitlesLabel}, nil)
	f.modeRadio.Horizontal = true
	f.modeRadio.SetSelected(modeSpeechLabel)

	f.normalizeCheck = widget.NewCheck("Rewrite OCR lines as natural sentences", nil)
	f.normalizeCheck.SetChecked(cfg.NormalizeSubtitles)
	f.modeRadio.OnChanged = func(string) { f.syncNormalize() }
	f.syncNormalize()

	f.targetLang = widget.NewSelect(supportedTargetLangs, nil)
	f.targetLang.SetSelected(langLabel(cfg.TargetLang))

	f.voiceGender = widget.NewSelect(voiceGenders, nil)
	f.voiceGender.SetSelected(cfg.VoiceGender)

	f.voiceLocale = widget.NewEntry()
	f.voiceLocale.SetText(cfg.VoiceLocale)

	f.outputDirEntry = widget.NewEntry()
	f.outputDirEntry.SetPlaceHolder("Next to the source video")
	f.outputDirEntry.SetText(cfg.OutputDirectory)

	f.outputNameEntry = widget.NewEntry()
	f.outputNameEntry.SetPlaceHolder("<name>_dubbed.mp4")

	names := make([]string, len(keepable))
	for i, st := range keepable {
		names[i] = string(st)
	}
	f.keepGroup = widget.NewCheckGroup(names, nil)
	f.keepGroup.Horizontal = true
	f.keepGroup.SetSelected(cfg.Keep)

	return f
}

func langLabel(code string) string {
	for label, c := range targetLangCodes {
		if c == code {
			return label
		}
	}
	return supportedTargetLangs[0]
}

func (f *JobForm) syncNormalize() {
	if f.modeRadio.Selected == modeSubtitlesLabel {
		f.normalizeCheck.Enable()
	} else {
		f.normalizeCheck.Disable()
	}
}

func (f *JobForm) Build() fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Mode", f.modeRadio),
		widget.NewFormItem("", f.normalizeCheck),
		widget.NewFormItem("Target", f.targetLang),
		widget.NewFormItem("Voice", container.NewGridWithColumns(2, f.voiceLocale, f.voiceGender)),
		widget.NewFormItem("Output folder", f.outputDirEntry),
		widget.NewFormItem("Output name", f.outputNameEntry),
		widget.NewFormItem("Keep", f.keepGroup),
	)
	return container.NewVBox(widget.NewSeparator(), container.NewPadded(form))
}

// Mode is the selected pipeline mode.
func (f *JobForm) Mode() models.Mode {
	if f.modeRadio.Selected == modeSubtitlesLabel {
		return models.ModeSubtitles
	}
	return models.ModeSpeech
}

// Apply copies the voice and language choices onto cfg.
func (f *JobForm) Apply(cfg *models.Config) {
	if code, ok := targetLangCodes[f.targetLang.Selected]; ok {
		cfg.TargetLang = code
	}
	if f.voiceGender.Selected != "" {
		cfg.VoiceGender = f.voiceGender.Selected
	}
	if v := strings.TrimSpace(f.voiceLocale.Text); v != "" {
		cfg.VoiceLocale = v
	}
	cfg.NormalizeSubtitles = f.normalizeCheck.Checked
	cfg.Keep = append([]string(nil), f.keepGroup.Selected...)
}

// NewJob builds a job for source from the current choices.
func (f *JobForm) NewJob(source string) *models.Job {
	job := models.NewJob(source, strings.TrimSpace(f.outputDirEntry.Text), f.outputNameEntry.Text)
	job.Mode = f.Mode()
	job.Normalize = job.Mode == models.ModeSubtitles && f.normalizeCheck.Checked
	for _, k := range f.keepGroup.Selected {
		if st, ok := models.ParseStage(k); ok {
			job.Keep = append(job.Keep, st)
		}
	}
	// A name is for one video only.
	f.outputNameEntry.SetText("")
	return job
}
