// Package lock guards a project name against concurrent bootstraps in the
// same directory.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultStaleAfter is how long a lock is honoured when its owner cannot be
// checked.
const DefaultStaleAfter = 2 * time.Hour

// Owner is the content of a lock file.
type Owner struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
	RunID     string    `json:"run_id,omitempty"`
}

// HeldError is returned when another live run owns the lock.
type HeldError struct {
	Project string
	Path    string
	Owner   *Owner // nil when the lock file could not be parsed
}

func (e *HeldError) Error() string {
	if e.Owner != nil {
		return fmt.Sprintf("project %s is being created by pid %d since %s (lock file: %s)",
			e.Project, e.Owner.PID, e.Owner.CreatedAt.Format(time.RFC3339), e.Path)
	}
	return fmt.Sprintf("project %s is being created by another run (lock file: %s)", e.Project, e.Path)
}

// ProjectLock creates .<name>.harvest.lock files in Dir.
type ProjectLock struct {
	Dir        string
	StaleAfter time.Duration
	Now        func() time.Time
	PIDAlive   func(pid int) bool
}

// NewProjectLock returns a ProjectLock for dir with default staleness rules.
func NewProjectLock(dir string) ProjectLock {
	return ProjectLock{
		Dir:        dir,
		StaleAfter: DefaultStaleAfter,
		Now:        time.Now,
		PIDAlive:   pidAlive,
	}
}

// Path returns the lock file used for project.
func (l ProjectLock) Path(project string) string {
	return filepath.Join(l.Dir, "."+project+".harvest.lock")
}

// Acquire takes the lock for project and returns a release function. A stale
// lock (dead owner or older than StaleAfter) is replaced. A live one yields
// *HeldError.
func (l ProjectLock) Acquire(project, runID string) (release func() error, err error) {
	path := l.Path(project)

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			if err := l.writeOwner(f, runID); err != nil {
				os.Remove(path)
				return nil, err
			}
			return func() error {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("removing lock file: %w", err)
				}
				return nil
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		owner, stale := l.inspect(path)
		if !stale {
			return nil, &HeldError{Project: project, Path: path, Owner: owner}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &HeldError{Project: project, Path: path, Owner: owner}
		}
	}
	return nil, &HeldError{Project: project, Path: path}
}

func (l ProjectLock) writeOwner(f *os.File, runID string) error {
	data, _ := json.Marshal(Owner{PID: os.Getpid(), CreatedAt: l.Now(), RunID: runID})
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing lock file: %w", err)
	}
	return nil
}

// inspect reads an existing lock file and decides whether it may be taken
// over. Unparseable files are judged by modification time.
func (l ProjectLock) inspect(path string) (*Owner, bool) {
	data, err := os.ReadFile(path)
	if err == nil {
		var owner Owner
		if json.Unmarshal(data, &owner) == nil {
			stale := !l.PIDAlive(owner.PID) || l.Now().Sub(owner.CreatedAt) > l.StaleAfter
			return &owner, stale
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Is(err, os.ErrNotExist)
	}
	return nil, l.Now().Sub(info.ModTime()) > l.StaleAfter
}
