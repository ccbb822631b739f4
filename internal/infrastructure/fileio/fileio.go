// Package fileio holds the file primitives shared by the history store, the artifact
// generator and the event log: per-path write locks, atomic replace, staged writes and
// disposition renames.
package fileio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TempSuffix marks a staged file that is not yet published.
const TempSuffix = ".temp"

// Locks serializes writers per logical resource key.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks returns an empty lock set.
func NewLocks() *Locks {
	return &Locks{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the lock for key and returns its release func.
func (l *Locks) Lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// WriteFile creates parent directories and overwrites path with data.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic replaces path so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+TempSuffix)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// AppendFile creates parent directories and appends data to path.
func AppendFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

// RenameWithSuffix renames path to "<path>.<suffix>".
func RenameWithSuffix(path, suffix string) (string, error) {
	target := path + "." + suffix
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return target, nil
}

// Staged is a file written under a temporary name, published by Commit or discarded by Rollback.
type Staged struct {
	final string
	temp  string
	done  bool
}

// Stage writes data to "<path>.temp".
func Stage(path string, data []byte) (*Staged, error) {
	temp := path + TempSuffix
	if err := WriteFile(temp, data); err != nil {
		return nil, err
	}
	return &Staged{final: path, temp: temp}, nil
}

// TempPath returns the staging location.
func (s *Staged) TempPath() string {
	return s.temp
}

// Commit moves the staged file onto its final name.
func (s *Staged) Commit() error {
	if s.done {
		return nil
	}
	if err := os.Rename(s.temp, s.final); err != nil {
		return fmt.Errorf("commit %s: %w", s.final, err)
	}
	s.done = true
	return nil
}

// Rollback deletes the staged file; the final file is left untouched.
func (s *Staged) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := os.Remove(s.temp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rollback %s: %w", s.temp, err)
	}
	return nil
}
