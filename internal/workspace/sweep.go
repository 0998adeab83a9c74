package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

const lockName = ".sweep.lock"

// SweepResult lists what one sweep removed and what it could not.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with the error hit while removing it.
type SweepError struct {
	Path string
	Err  error
}

// CleanStale removes workspace directories last modified before maxAge ago.
// They are leftovers of processes that died before releasing them. Workspaces
// still held by this process are never removed.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration) SweepResult {
	var result SweepResult
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: m.root, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		if m.Active(entry.Name()) {
			continue
		}
		dir := filepath.Join(m.root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			m.log.WithError(err).WithField("path", dir).Warn("failed to remove stale workspace")
			continue
		}
		result.Removed = append(result.Removed, dir)
		m.log.WithFields(logrus.Fields{
			"path": dir,
			"age":  time.Since(info.ModTime()).Round(time.Second).String(),
		}).Info("removed stale workspace")
	}
	return result
}

// Sweep runs CleanStale every interval until ctx ends. Only the process
// holding the lock file in the workspace root sweeps; others skip the tick.
func (m *Manager) Sweep(ctx context.Context, interval, maxAge time.Duration) error {
	if interval <= 0 || maxAge <= 0 {
		return fmt.Errorf("workspace: sweep interval and max age must be positive")
	}
	lock := flock.New(filepath.Join(m.root, lockName))
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.log.WithError(err).Warn("failed to release sweep lock")
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.sweepOnce(ctx, lock, maxAge)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Manager) sweepOnce(ctx context.Context, lock *flock.Flock, maxAge time.Duration) {
	if !lock.Locked() {
		ok, err := lock.TryLock()
		if err != nil {
			m.log.WithError(err).Warn("failed to acquire sweep lock")
			return
		}
		if !ok {
			m.log.Debug("another process holds the sweep lock")
			return
		}
	}
	res := m.CleanStale(ctx, maxAge)
	if len(res.Removed) > 0 || len(res.Errors) > 0 {
		m.log.WithFields(logrus.Fields{
			"removed": len(res.Removed),
			"errors":  len(res.Errors),
		}).Info("workspace sweep finished")
	}
}
