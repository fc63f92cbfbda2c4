// Package fileutil provides shared file utilities for ghrelease.
package fileutil

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// MaxDescriptionSize bounds the size of a release description file.
const MaxDescriptionSize = 1 << 20

type tempFile interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

type fsOps struct {
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	remove     func(path string) error
}

func defaultFSOps() fsOps {
	return fsOps{
		createTemp: func(dir, pattern string) (tempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
		rename: os.Rename,
		remove: os.Remove,
	}
}

// ReadDescription reads a release description file. Line endings are
// normalized: every line, including the last, ends with a single "\n".
func ReadDescription(path string) (string, error) {
	const op = "fileutil.ReadDescription"

	if path == "" {
		return "", rperrors.Validation(op, "description file path must not be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", rperrors.IOWrap(err, op, "description file "+path+" does not exist")
	}
	if info.IsDir() {
		return "", rperrors.IO(op, "description file "+path+" is a directory")
	}

	data, err := ReadFileLimited(path, MaxDescriptionSize)
	if err != nil {
		return "", rperrors.IOWrap(err, op, "failed to read description file "+path)
	}

	var b strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxDescriptionSize)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", rperrors.IOWrap(err, op, "failed to read description file "+path)
	}
	return b.String(), nil
}

// ReadFileLimited reads a file up to maxSize bytes and fails on anything
// larger.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from user configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed size %d", info.Size(), maxSize)
	}

	// The file may grow between Stat and ReadAll.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size %d", maxSize)
	}
	return data, nil
}

// AtomicWriteFile writes data to a temp file next to path and renames it
// into place, so readers never observe a partial report.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return atomicWriteFile(path, data, perm, defaultFSOps())
}

func atomicWriteFile(path string, data []byte, perm os.FileMode, ops fsOps) error {
	tmp, err := ops.createTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = ops.remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := ops.rename(tmpPath, path); err != nil {
		_ = ops.remove(tmpPath)
		committed = true
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return nil
}
