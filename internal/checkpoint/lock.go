package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"anime-dubber/internal/atomicfile"
	"anime-dubber/models"
)

const lockOwnerFile = "owner.json"

// Lock is exclusive ownership of one checkpoint. The lock is a directory
// created next to the checkpoint; mkdir is atomic on every platform we run on.
type Lock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	JobID     string `json:"job_id,omitempty"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// AcquireLock takes ownership of the checkpoint at checkpointPath for jobID.
// A held lock yields an error wrapping models.ErrJobLocked.
func AcquireLock(checkpointPath, jobID string) (Lock, error) {
	target := strings.TrimSpace(checkpointPath)
	if target == "" {
		return Lock{}, fmt.Errorf("checkpoint path is required")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Lock{}, fmt.Errorf("create checkpoint directory: %w", err)
	}

	lockDir := target + ".lock"
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			var owner lockOwner
			if readErr := atomicfile.ReadJSON(filepath.Join(lockDir, lockOwnerFile), &owner); readErr == nil && owner.PID > 0 {
				return Lock{}, fmt.Errorf("%w: %s (pid=%d created_at=%s host=%s)",
					models.ErrJobLocked, target, owner.PID, owner.CreatedAt, owner.Hostname)
			}
			return Lock{}, fmt.Errorf("%w: %s", models.ErrJobLocked, target)
		}
		return Lock{}, fmt.Errorf("acquire lock for %s: %w", target, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		JobID:     jobID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := atomicfile.WriteJSON(filepath.Join(lockDir, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return Lock{}, fmt.Errorf("write lock owner for %s: %w", target, err)
	}

	return Lock{lockDir: lockDir}, nil
}

// Release gives up ownership. Releasing a zero Lock is a no-op.
func (l Lock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.lockDir, err)
	}
	return nil
}

// ForceUnlock removes a lock left behind by a crashed process.
func ForceUnlock(checkpointPath string) error {
	if err := os.RemoveAll(checkpointPath + ".lock"); err != nil {
		return fmt.Errorf("remove lock for %s: %w", checkpointPath, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
