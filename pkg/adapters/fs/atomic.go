package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// TempFilePrefix names the staging files of in-flight writes. The watcher and
// the repository skip them.
const TempFilePrefix = ".rulemerge-tmp-"

// staged is a temp file next to its destination. It either replaces the
// destination on commit or disappears on abort.
type staged struct {
	f    *os.File
	dest string
	done bool
}

func stage(dest string, perm os.FileMode) (*staged, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), TempFilePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", dest, err)
	}
	s := &staged{f: f, dest: dest}
	if err := f.Chmod(perm); err != nil {
		return nil, s.abort(fmt.Errorf("stage %s: %w", dest, err))
	}
	return s, nil
}

// commit flushes the staged bytes and renames them over the destination.
func (s *staged) commit() error {
	if err := s.f.Sync(); err != nil {
		return s.abort(fmt.Errorf("sync %s: %w", s.f.Name(), err))
	}
	if err := s.f.Close(); err != nil {
		return s.abort(fmt.Errorf("close %s: %w", s.f.Name(), err))
	}
	if err := os.Rename(s.f.Name(), s.dest); err != nil {
		return s.abort(fmt.Errorf("replace %s: %w", s.dest, err))
	}
	s.done = true
	return syncDir(filepath.Dir(s.dest))
}

// abort drops the temp file and returns cause joined with cleanup failures.
func (s *staged) abort(cause error) error {
	if s.done {
		return cause
	}
	s.done = true
	closeErr := s.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	removeErr := os.Remove(s.f.Name())
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(cause, closeErr, removeErr)
}

// syncDir persists the rename itself. Windows cannot open directories for sync.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return d.Close()
}

// writeFileAtomic replaces filename with data, so readers see either the old
// or the new content.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	s, err := stage(filename, perm)
	if err != nil {
		return err
	}
	if _, err := s.f.Write(data); err != nil {
		return s.abort(fmt.Errorf("write %s: %w", s.f.Name(), err))
	}
	return s.commit()
}
