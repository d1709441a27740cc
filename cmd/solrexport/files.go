package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// transform streams the file in through fn into out. Output goes to a
// temporary file next to out that is renamed into place only when fn
// succeeds, so a failed run never leaves a half-written result.
func transform(in, out string, fn func(r io.Reader, w io.Writer) error) (inSize, outSize int64, err error) {
	absIn, err := filepath.Abs(in)
	if err != nil {
		return 0, 0, err
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return 0, 0, err
	}
	if absIn == absOut {
		return 0, 0, fmt.Errorf("output %s would overwrite the input", out)
	}

	src, err := os.Open(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer src.Close()

	if st, err := src.Stat(); err == nil {
		inSize = st.Size()
	}

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fn(src, tmp); err != nil {
		return inSize, 0, err
	}
	if err = tmp.Sync(); err != nil {
		return inSize, 0, fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return inSize, 0, fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return inSize, 0, fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), out); err != nil {
		return inSize, 0, fmt.Errorf("failed to move output into place: %w", err)
	}

	if st, statErr := os.Stat(out); statErr == nil {
		outSize = st.Size()
	}
	return inSize, outSize, nil
}

// replaceExt swaps the extension of path for ext
func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// withSuffix inserts suffix before the extension of path
func withSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}
