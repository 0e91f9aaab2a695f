// Package lockfile implements the process-wide advisory lock over the
// cache file (spec.md §5/§6, SPEC_FULL.md §4.14).
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrLocked is returned by Acquire when another process already holds the
// lock (spec.md §6: cache-locked-by-other-instance, a distinct exit code).
var ErrLocked = errors.New("lockfile: cache is locked by another instance")

// LockFile is a held advisory lock, released by Release.
type LockFile struct {
	path string
	f    *os.File
}

// Acquire creates "<cachefile>.lock" with O_EXCL; on EEXIST it returns
// ErrLocked rather than overwriting another process's lock.
func Acquire(cacheFile string) (*LockFile, error) {
	path := cacheFile + ".lock"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("lockfile: write pid: %w", err)
	}
	return &LockFile{path: path, f: f}, nil
}

// Release closes and removes the lock file. A crashed process leaves a
// stale lock behind; staleness detection beyond this is out of scope
// (spec.md makes no guarantee about it).
func (l *LockFile) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	l.f.Close()
	return os.Remove(l.path)
}
