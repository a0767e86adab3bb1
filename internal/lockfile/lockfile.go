// Package lockfile prevents two collabd daemons from binding the same state.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLocked is returned when another daemon instance already holds the lock.
var ErrLocked = errors.New("another instance is already running")

// Pidfile is a file-based single-instance lock.
type Pidfile struct {
	path   string
	file   *os.File
	pid    int
	locked bool
}

// New creates a pidfile lock at the given path. The lock is not acquired
// until TryAcquire is called.
func New(path string) *Pidfile {
	return &Pidfile{path: path}
}

// TryAcquire attempts to acquire the lock. A leftover pidfile whose process
// is gone, or that is older than an hour, is treated as stale and replaced.
func (p *Pidfile) TryAcquire() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create pidfile directory: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if os.IsExist(err) {
		stale, reason := p.isStale()
		if !stale {
			return fmt.Errorf("%w: %s", ErrLocked, reason)
		}
		if removeErr := os.Remove(p.path); removeErr != nil {
			return fmt.Errorf("failed to remove stale pidfile (%s): %w", reason, removeErr)
		}
		file, err = os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to create pidfile: %w", err)
	}

	p.file = file
	p.pid = os.Getpid()
	p.locked = true

	content := fmt.Sprintf("%d\n%s\n", p.pid, time.Now().Format(time.RFC3339))
	if _, err := p.file.WriteString(content); err != nil {
		p.Release()
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	if err := p.file.Sync(); err != nil {
		p.Release()
		return fmt.Errorf("failed to sync pidfile: %w", err)
	}

	return nil
}

// isStale reports whether the existing pidfile no longer protects a live
// daemon, along with a human-readable reason.
func (p *Pidfile) isStale() (bool, string) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return true, "cannot read pidfile"
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return true, "invalid PID in pidfile"
	}

	if !processAlive(pid) {
		return true, "owning process is gone"
	}

	if len(lines) >= 2 {
		if stamp, err := time.Parse(time.RFC3339, strings.TrimSpace(lines[1])); err == nil {
			if time.Since(stamp) > time.Hour {
				return true, "pidfile is older than 1 hour"
			}
		}
	}

	return false, fmt.Sprintf("process with PID %d is running", pid)
}

// Release releases the lock and removes the pidfile. Safe to call when the
// lock was never acquired.
func (p *Pidfile) Release() error {
	if !p.locked {
		return nil
	}

	var err error
	if p.file != nil {
		err = p.file.Close()
		p.file = nil
	}

	if removeErr := os.Remove(p.path); removeErr != nil && !os.IsNotExist(removeErr) {
		if err != nil {
			err = fmt.Errorf("%v; failed to remove pidfile: %w", err, removeErr)
		} else {
			err = fmt.Errorf("failed to remove pidfile: %w", removeErr)
		}
	}

	p.locked = false
	return err
}

// PID returns the PID recorded in the lock
func (p *Pidfile) PID() int {
	return p.pid
}

// Locked returns true if the lock is held
func (p *Pidfile) Locked() bool {
	return p.locked
}

// Path returns the pidfile path
func (p *Pidfile) Path() string {
	return p.path
}
