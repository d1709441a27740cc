package sink

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"solrexport/pkg/errors"
)

// Writer appends records to a JSONL file, one compacted document per line
type Writer struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	size   int64
	closed bool
	mu     sync.Mutex

	truncate func(size int64) error
}

// Open opens path for appending, creating it and its parent directories
func Open(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.New(errors.ErrorTypeSink, 0, err, "create output directory: %v", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeSink, 0, err, "open %s: %v", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.New(errors.ErrorTypeSink, 0, err, "stat %s: %v", path, err)
	}

	return &Writer{
		path:     path,
		file:     file,
		buf:      bufio.NewWriterSize(file, 256*1024),
		size:     info.Size(),
		truncate: file.Truncate,
	}, nil
}

// Append writes records and returns once they are flushed and synced. If any
// step fails the file is truncated back to its length before the call.
func (w *Writer) Append(records []json.RawMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New(errors.ErrorTypeSink, 0, os.ErrClosed, "append to closed sink %s", w.path)
	}

	var written int64
	var line bytes.Buffer
	for i, rec := range records {
		line.Reset()
		if err := json.Compact(&line, rec); err != nil {
			return w.fail(err, "record %d is not valid JSON", i)
		}
		line.WriteByte('\n')

		n, err := w.buf.Write(line.Bytes())
		written += int64(n)
		if err != nil {
			return w.fail(err, "write %s", w.path)
		}
	}

	if err := w.buf.Flush(); err != nil {
		return w.fail(err, "flush %s", w.path)
	}
	if err := w.file.Sync(); err != nil {
		return w.fail(err, "sync %s", w.path)
	}

	w.size += written
	return nil
}

// fail drops buffered bytes, cuts the file back to the last synced size and
// returns the sink error for cause. A failed truncate is part of that error,
// since the file may then still hold part of the page.
func (w *Writer) fail(cause error, format string, args ...interface{}) error {
	w.buf.Reset(w.file)
	msg := fmt.Sprintf(format, args...)

	if terr := w.truncate(w.size); terr != nil {
		return errors.New(errors.ErrorTypeSink, 0, stderrors.Join(cause, terr),
			"%s: %v; rollback to %d bytes failed: %v", msg, cause, w.size, terr)
	}
	return errors.New(errors.ErrorTypeSink, 0, cause, "%s: %v", msg, cause)
}

// Size returns the number of bytes durably appended, including pre-existing content
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Path returns the output file location
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the file. Calling it again is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return errors.New(errors.ErrorTypeSink, 0, flushErr, "flush %s: %v", w.path, flushErr)
	}
	if closeErr != nil {
		return errors.New(errors.ErrorTypeSink, 0, closeErr, "close %s: %v", w.path, closeErr)
	}
	return nil
}

var _ io.Closer = (*Writer)(nil)
