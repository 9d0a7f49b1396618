package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is the single backing file of a store.
type File struct {
	path string
	mode os.FileMode
}

func NewFile(path string, mode os.FileMode) *File {
	return &File{path: path, mode: mode}
}

func (f *File) Path() string { return f.path }

// Read returns the file content. A missing file is not an error; ok is false.
func (f *File) Read() (data []byte, ok bool, err error) {
	data, err = os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.path, err)
	}
	return data, true, nil
}

// Write replaces the file content with data. It writes a temp file in the same
// directory and renames it over the target, so readers see either the previous
// or the new document.
func (f *File) Write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(f.mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(name, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Remove deletes the file. A missing file is not an error.
func (f *File) Remove() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
