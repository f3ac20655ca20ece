// Package lockfile guards a PromptCanvas state directory against concurrent use.
//
// The lock is an flock(2) on a file inside the state directory, so the kernel drops it
// when the owning process exits for any reason.
package lockfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "promptcanvas.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID     int
	Started string
}

// AcquireLock takes an exclusive, non-blocking lock on stateDir. When another process
// holds it, the returned error is a *LockError naming that process.
func AcquireLock(stateDir string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	slog.Debug("Lockfile.AcquireLock: acquiring lock", "lock_path", lockPath)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// Truncate only once the flock is held.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		lockErr := &LockError{LockPath: lockPath, Cause: err}
		if owner, readErr := ReadOwner(lockPath); readErr == nil {
			lockErr.Owner = &owner
		}
		slog.Error("Lockfile.AcquireLock: state directory already locked", "lock_path", lockPath, "error", err)
		return nil, lockErr
	}

	if err := writeOwner(file); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	slog.Info("Lockfile.AcquireLock: lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lockfile.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Lockfile.Release: failed to unlock", "error", err, "lock_path", l.path)
	}
	err := l.file.Close()
	l.file = nil
	slog.Info("Lockfile.Release: lock released", "lock_path", l.path)
	return err
}

func writeOwner(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(content); err != nil {
		return err
	}
	return file.Sync()
}

// ReadOwner parses the owner recorded in a lock file.
func ReadOwner(lockPath string) (Owner, error) {
	f, err := os.Open(lockPath)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var owner Owner
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil {
				owner.PID = pid
			}
		case "started":
			owner.Started = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Owner{}, err
	}
	if owner.PID == 0 {
		return Owner{}, fmt.Errorf("no pid recorded in %s", lockPath)
	}
	return owner, nil
}

// Running reports whether the owner process still exists.
func (o Owner) Running() bool {
	if o.PID <= 0 {
		return false
	}
	process, err := os.FindProcess(o.PID)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// LockError is returned when another process holds the state directory lock.
type LockError struct {
	LockPath string
	Owner    *Owner
	Cause    error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another PromptCanvas instance is using this state directory (lock file: %s)", e.LockPath)
	if e.Owner != nil {
		state := "running"
		if !e.Owner.Running() {
			state = "not running, lock may be stale"
		}
		fmt.Fprintf(&b, "; owner pid %d (%s)", e.Owner.PID, state)
		if e.Owner.Started != "" {
			fmt.Fprintf(&b, " started %s", e.Owner.Started)
		}
	}
	return b.String()
}

func (e *LockError) Unwrap() error {
	return e.Cause
}
