package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"anime-dubber/models"
)

func TestStore_RecordAndList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ctx := context.Background()
	job := models.NewJob("/videos/ep1.mkv", "/out", "ep1_en")
	job.CurrentStage = models.StageTranslate
	job.Fail(errors.New("quota exceeded"))
	if err := s.RecordJob(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.Error = nil
	job.Complete("/out/ep1_en.mp4")
	if err := s.RecordJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	other := models.NewJob("/videos/ep2.mkv", "", "")
	other.Cancel()
	if err := s.RecordJob(ctx, other); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].JobID != other.ID || all[0].Status != models.StatusCancelled {
		t.Errorf("newest = %+v", all[0])
	}

	limited, err := s.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d entries, %v", len(limited), err)
	}

	runs, err := s.ForJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].Status != models.StatusFailed || runs[0].Error != "quota exceeded" || runs[0].Stage != models.StageTranslate {
		t.Errorf("first run = %+v", runs[0])
	}
	if runs[1].Status != models.StatusMerged || runs[1].Progress != 100 || runs[1].Error != "" {
		t.Errorf("second run = %+v", runs[1])
	}
	if runs[1].Output != "/out/ep1_en.mp4" {
		t.Errorf("output = %s", runs[1].Output)
	}
	if !runs[1].RecordedAt.After(runs[0].RecordedAt) {
		t.Errorf("timestamps out of order: %s, %s", runs[0].RecordedAt, runs[1].RecordedAt)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	job := models.NewJob("/v.mkv", "/out", "v_en")
	job.Cancel()
	if err := s.RecordJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.List(context.Background(), 10)
	if err != nil || len(got) != 1 || got[0].JobID != job.ID {
		t.Errorf("after reopen: %+v, %v", got, err)
	}
}
