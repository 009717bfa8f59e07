package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"anime-dubber/models"
)

func newTestJob(t *testing.T) *models.Job {
	t.Helper()
	dir := t.TempDir()
	return models.NewJob(filepath.Join(dir, "ep01.mkv"), dir, "ep01_dub.mp4")
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ".x.checkpoint.json"))

	cp, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil checkpoint, got %+v", cp)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	job := newTestJob(t)
	store := NewStore(job.CheckpointPath())

	cp := New(job)
	cp.MarkCompleted(models.StageExtract, "/w/a.wav")
	if err := store.Save(cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.JobID != job.ID || loaded.Source != job.SourcePath {
		t.Errorf("identity lost: %+v", loaded)
	}
	if got, ok := loaded.Completed(models.StageExtract); !ok || got != "/w/a.wav" {
		t.Errorf("Completed(extract) = %q, %v", got, ok)
	}
	if _, ok := loaded.Completed(models.StageMono); ok {
		t.Error("mono should not be completed")
	}
	if loaded.UpdatedAt == "" {
		t.Error("UpdatedAt should be stamped on save")
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("checkpoint perms = %o, want 644", info.Mode().Perm())
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	job := newTestJob(t)
	store := NewStore(job.CheckpointPath())

	for i := 0; i < 3; i++ {
		if err := store.Save(New(job)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(job.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".animedub-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_LoadUnparsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".x.checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(path).Load()
	var corrupt *models.CheckpointCorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CheckpointCorruptError, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	job := newTestJob(t)
	store := NewStore(job.CheckpointPath())
	if err := store.Save(New(job)); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("checkpoint still present: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestFrontier(t *testing.T) {
	job := newTestJob(t)
	cp := New(job)
	plan := job.Plan()

	if got := cp.Frontier(plan); got != "" {
		t.Errorf("empty checkpoint frontier = %q", got)
	}
	cp.MarkCompleted(models.StageExtract, "a")
	cp.MarkCompleted(models.StageMono, "b")
	if got := cp.Frontier(plan); got != models.StageMono {
		t.Errorf("Frontier() = %q, want mono", got)
	}
}

func TestValidate(t *testing.T) {
	job := newTestJob(t)
	plan := job.Plan()
	existing := filepath.Join(job.OutputDir, "mono.wav")
	if err := os.WriteFile(existing, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(cp *Checkpoint)
		wantErr bool
	}{
		{"empty", func(cp *Checkpoint) {}, false},
		{"valid prefix", func(cp *Checkpoint) {
			cp.MarkCompleted(models.StageExtract, "/gone/extracted.wav")
			cp.MarkCompleted(models.StageMono, existing)
		}, false},
		{"missing frontier artifact", func(cp *Checkpoint) {
			cp.MarkCompleted(models.StageExtract, existing)
			cp.MarkCompleted(models.StageMono, filepath.Join(job.OutputDir, "gone.wav"))
		}, true},
		{"gap in prefix", func(cp *Checkpoint) {
			cp.MarkCompleted(models.StageExtract, existing)
			cp.MarkCompleted(models.StageChunk, existing)
		}, true},
		{"stage outside plan", func(cp *Checkpoint) {
			cp.MarkCompleted(models.StageOCR, existing)
		}, true},
		{"source mismatch", func(cp *Checkpoint) {
			cp.Source = "/other/video.mkv"
		}, true},
		{"mode mismatch", func(cp *Checkpoint) {
			cp.Mode = models.ModeSubtitles
		}, true},
		{"future version", func(cp *Checkpoint) {
			cp.Version = Version + 1
		}, true},
		{"frontier without artifact", func(cp *Checkpoint) {
			cp.MarkCompleted(models.StageExtract, "")
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp := New(job)
			tt.mutate(cp)

			err := cp.Validate("/cp.json", job.SourcePath, job.Mode, plan)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var corrupt *models.CheckpointCorruptError
				if !errors.As(err, &corrupt) {
					t.Errorf("expected CheckpointCorruptError, got %T", err)
				}
			}
		})
	}
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".x.checkpoint.json")

	lock, err := AcquireLock(path, "job-1")
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	if _, err := AcquireLock(path, "job-2"); !errors.Is(err, models.ErrJobLocked) {
		t.Errorf("second acquire error = %v, want ErrJobLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	again, err := AcquireLock(path, "job-2")
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestForceUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".x.checkpoint.json")
	if _, err := AcquireLock(path, "crashed"); err != nil {
		t.Fatal(err)
	}

	if err := ForceUnlock(path); err != nil {
		t.Fatalf("ForceUnlock() error = %v", err)
	}
	lock, err := AcquireLock(path, "next")
	if err != nil {
		t.Fatalf("acquire after ForceUnlock: %v", err)
	}
	_ = lock.Release()
}

func TestLock_ZeroRelease(t *testing.T) {
	var l Lock
	if err := l.Release(); err != nil {
		t.Errorf("zero Release() error = %v", err)
	}
}
