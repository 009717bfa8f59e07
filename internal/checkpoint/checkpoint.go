// Package checkpoint persists which pipeline stages of a job have completed.
//
// A checkpoint is one flat JSON document at a fixed path. Every save is a full
// atomic replace; there are no partial or appended updates.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/models"
)

// Version is the schema version written by this package.
const Version = 1

// Entry is the record for one stage.
type Entry struct {
	Completed bool   `json:"completed"`
	Artifact  string `json:"artifact,omitempty"`
}

// Checkpoint is the durable progress record of one job.
type Checkpoint struct {
	Version   int              `json:"version"`
	JobID     string           `json:"job_id"`
	Source    string           `json:"source"`
	Mode      models.Mode      `json:"mode"`
	Keep      []models.Stage   `json:"keep,omitempty"`
	UpdatedAt string           `json:"updated_at"`
	Stages    map[string]Entry `json:"stages"`
}

// New starts an empty checkpoint for job.
func New(job *models.Job) *Checkpoint {
	return &Checkpoint{
		Version: Version,
		JobID:   job.ID,
		Source:  job.SourcePath,
		Mode:    job.Mode,
		Keep:    append([]models.Stage(nil), job.Keep...),
		Stages:  make(map[string]Entry),
	}
}

// Completed returns the stored artifact when stage has completed.
func (c *Checkpoint) Completed(stage models.Stage) (string, bool) {
	e, ok := c.Stages[string(stage)]
	if !ok || !e.Completed {
		return "", false
	}
	return e.Artifact, true
}

// MarkCompleted records stage as done with its artifact.
func (c *Checkpoint) MarkCompleted(stage models.Stage, artifact string) {
	if c.Stages == nil {
		c.Stages = make(map[string]Entry)
	}
	c.Stages[string(stage)] = Entry{Completed: true, Artifact: artifact}
}

// Frontier returns the last completed stage of plan, or "" when none is.
func (c *Checkpoint) Frontier(plan []models.Stage) models.Stage {
	var last models.Stage
	for _, st := range plan {
		if _, ok := c.Completed(st); !ok {
			break
		}
		last = st
	}
	return last
}

// Validate checks that c can be resumed for a job with the given source,
// mode and plan. Failures are *models.CheckpointCorruptError.
func (c *Checkpoint) Validate(path, source string, mode models.Mode, plan []models.Stage) error {
	corrupt := func(format string, args ...any) error {
		return &models.CheckpointCorruptError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	if c.Version != Version {
		return corrupt("unsupported version %d", c.Version)
	}
	if c.Source != source {
		return corrupt("belongs to source %q, not %q", c.Source, source)
	}
	if c.Mode != mode {
		return corrupt("recorded mode %q, job mode %q", c.Mode, mode)
	}

	inPlan := make(map[string]bool, len(plan))
	for _, st := range plan {
		inPlan[string(st)] = true
	}
	for name := range c.Stages {
		if !inPlan[name] {
			return corrupt("unknown stage %q", name)
		}
	}

	// Completed stages must form a prefix of the plan.
	gap := false
	for _, st := range plan {
		_, done := c.Completed(st)
		if done && gap {
			return corrupt("stage %q completed after an incomplete stage", st)
		}
		if !done {
			gap = true
		}
	}

	frontier := c.Frontier(plan)
	if frontier == "" {
		return nil
	}
	artifact, _ := c.Completed(frontier)
	if artifact == "" {
		return corrupt("stage %q has no artifact", frontier)
	}
	if _, err := os.Stat(artifact); err != nil {
		return &models.CheckpointCorruptError{
			Path:   path,
			Reason: fmt.Sprintf("artifact of stage %q is missing: %s", frontier, artifact),
			Err:    err,
		}
	}
	return nil
}

// Store reads and writes the checkpoint at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store for the checkpoint file at path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored checkpoint, or (nil, nil) when none exists.
// Unparsable content is a *models.CheckpointCorruptError.
func (s *Store) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, &models.CheckpointCorruptError{Path: s.path, Reason: "unparsable JSON", Err: err}
	}
	if cp.Stages == nil {
		cp.Stages = make(map[string]Entry)
	}
	return &cp, nil
}

// Save atomically replaces the checkpoint file with cp.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = s.now().UTC().Format(time.RFC3339)
	return atomicfile.WriteJSON(s.path, cp)
}

// Delete removes the checkpoint. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete checkpoint %s: %w", s.path, err)
	}
	return nil
}
