package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anime-dubber/internal/checkpoint"
	"anime-dubber/internal/history"
	"anime-dubber/models"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyFlags(t *testing.T) {
	cmd := newOCRCommand()
	if err := cmd.ParseFlags([]string{
		"--target", "fr",
		"--voice-gender", "female",
		"--keep", "ocr, translate",
		"--ocr-fps", "2.5",
		"--normalize",
	}); err != nil {
		t.Fatal(err)
	}

	cfg := models.DefaultConfig()
	cfg.SourceLang = "ja"
	if err := applyFlags(cmd, cfg); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}

	if cfg.TargetLang != "fr" || cfg.VoiceGender != "female" {
		t.Errorf("target/gender = %s/%s", cfg.TargetLang, cfg.VoiceGender)
	}
	if cfg.SourceLang != "ja" {
		t.Errorf("unset flag overwrote source: %s", cfg.SourceLang)
	}
	if strings.Join(cfg.Keep, ",") != "ocr,translate" {
		t.Errorf("keep = %v", cfg.Keep)
	}
	if cfg.OCRFPS != 2.5 || !cfg.NormalizeSubtitles {
		t.Errorf("fps/normalize = %v/%v", cfg.OCRFPS, cfg.NormalizeSubtitles)
	}
}

func TestBuildJob(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "Episode 01.MKV")

	cmd := newOCRCommand()
	if err := cmd.ParseFlags([]string{"--name", "dubbed"}); err != nil {
		t.Fatal(err)
	}
	cfg := models.DefaultConfig()
	cfg.NormalizeSubtitles = true
	cfg.Keep = []string{"ocr"}

	job, err := buildJob(cmd, cfg, video, models.ModeSubtitles)
	if err != nil {
		t.Fatalf("buildJob() error = %v", err)
	}
	if job.OutputDir != dir {
		t.Errorf("output dir = %s, want %s", job.OutputDir, dir)
	}
	if job.OutputName != "dubbed.mp4" {
		t.Errorf("output name = %s", job.OutputName)
	}
	if !job.Normalize || !job.Keeps(models.StageOCR) {
		t.Errorf("normalize = %v, keep = %v", job.Normalize, job.Keep)
	}

	if _, err := buildJob(cmd, cfg, filepath.Join(dir, "missing.mkv"), models.ModeSpeech); err == nil {
		t.Error("expected error for a missing video")
	}
	if _, err := buildJob(cmd, cfg, dir, models.ModeSpeech); err == nil {
		t.Error("expected error for a directory")
	}
}

func TestStatusAndDiscardCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	video := writeVideo(t, dir, "ep2.mkv")

	job := models.NewJob(video, dir, "")
	if err := os.MkdirAll(job.WorkDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	audio := filepath.Join(job.WorkDir(), "audio.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	cp := checkpoint.New(job)
	cp.MarkCompleted(models.StageExtract, audio)
	if err := checkpoint.NewStore(job.CheckpointPath()).Save(cp); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "status", video)
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"✓ extract", "audio.wav", "· mono", "Resumes after extract"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "--config", cfgPath, "discard", video); err != nil {
		t.Fatalf("discard error = %v", err)
	}
	if _, err := os.Stat(job.CheckpointPath()); !os.IsNotExist(err) {
		t.Errorf("checkpoint still present, stat err = %v", err)
	}
	if _, err := os.Stat(job.WorkDir()); !os.IsNotExist(err) {
		t.Errorf("work dir still present, stat err = %v", err)
	}

	out, err = execute(t, "--config", cfgPath, "status", video)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "not started") {
		t.Errorf("status after discard:\n%s", out)
	}
}

func TestStatusReportsUnresumableCheckpoint(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "ep3.mkv")
	job := models.NewJob(video, dir, "")

	cp := checkpoint.New(job)
	cp.MarkCompleted(models.StageExtract, filepath.Join(dir, "gone.wav"))
	if err := checkpoint.NewStore(job.CheckpointPath()).Save(cp); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", filepath.Join(dir, "config.json"), "status", video)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cannot resume") {
		t.Errorf("expected a resume warning:\n%s", out)
	}
}

func TestDiscardForceRemovesStaleLock(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "ep4.mkv")
	job := models.NewJob(video, dir, "")

	if _, err := checkpoint.AcquireLock(job.CheckpointPath(), "crashed-run"); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.json")

	if _, err := execute(t, "--config", cfgPath, "discard", video); err == nil {
		t.Fatal("discard should refuse a locked job")
	}
	if _, err := execute(t, "--config", cfgPath, "discard", "--force", video); err != nil {
		t.Fatalf("discard --force error = %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.json")
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijkl")

	out, err := execute(t, "--config", cfgPath, "config", "init")
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, cfgPath) {
		t.Errorf("init output = %q", out)
	}
	if _, err := execute(t, "--config", cfgPath, "config", "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}

	out, err = execute(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "sk-abcdefghijkl") {
		t.Error("secret printed unmasked")
	}
	if !strings.Contains(out, `"openai_key": "sk-a****ijkl"`) {
		t.Errorf("masked key missing:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	store, err := history.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	job := models.NewJob(filepath.Join(dir, "ep5.mkv"), dir, "")
	job.Complete(job.OutputPath())
	if err := store.RecordJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	store.Close()

	cfgPath := filepath.Join(dir, "config.json")
	out, err := execute(t, "--config", cfgPath, "history", "--history", dbPath)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, job.ID[:8]) || !strings.Contains(out, "ep5_dubbed.mp4") {
		t.Errorf("history output:\n%s", out)
	}

	out, err = execute(t, "--config", cfgPath, "history", "--history", dbPath, "--job", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("unknown job output:\n%s", out)
	}
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"short", "****"},
		{"AIzaSyA-1234567890", "AIza****7890"},
	}
	for _, tt := range tests {
		if got := mask(tt.in); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
