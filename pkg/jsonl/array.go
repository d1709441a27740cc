package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

const defaultIndent = "  "

var utf8BOM = []byte("\xef\xbb\xbf")

// arrayWriter streams documents into an indented JSON array without holding
// the whole array in memory
type arrayWriter struct {
	w      *bufio.Writer
	indent string
	n      int
	buf    bytes.Buffer
}

func newArrayWriter(out io.Writer, indent string) *arrayWriter {
	if indent == "" {
		indent = defaultIndent
	}
	return &arrayWriter{w: bufio.NewWriterSize(out, 64*1024), indent: indent}
}

func (a *arrayWriter) open() error {
	_, err := a.w.WriteString("[")
	return err
}

func (a *arrayWriter) write(doc []byte) error {
	a.buf.Reset()
	if err := json.Indent(&a.buf, doc, a.indent, a.indent); err != nil {
		return err
	}

	sep := ",\n"
	if a.n == 0 {
		sep = "\n"
	}
	if _, err := a.w.WriteString(sep + a.indent); err != nil {
		return err
	}
	if _, err := a.w.Write(a.buf.Bytes()); err != nil {
		return err
	}
	a.n++
	return nil
}

func (a *arrayWriter) close() error {
	tail := "]\n"
	if a.n > 0 {
		tail = "\n]\n"
	}
	if _, err := a.w.WriteString(tail); err != nil {
		return err
	}
	return a.w.Flush()
}

// lineReader yields trimmed lines of arbitrary length
type lineReader struct {
	r    *bufio.Reader
	line int
}

func newLineReader(r *bufio.Reader) *lineReader {
	return &lineReader{r: r}
}

// next returns the next line, its 1-based number, and io.EOF once input is
// exhausted
func (l *lineReader) next() ([]byte, int, error) {
	raw, err := l.r.ReadBytes('\n')
	if len(raw) == 0 && err != nil {
		return nil, l.line, err
	}
	l.line++
	if l.line == 1 {
		raw = bytes.TrimPrefix(raw, utf8BOM)
	}
	if err != nil && err != io.EOF {
		return nil, l.line, err
	}
	return bytes.TrimSpace(raw), l.line, nil
}

// firstByte returns the first non-whitespace byte without consuming it
func firstByte(r *bufio.Reader) (byte, error) {
	if b, err := r.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		if _, err := r.Discard(len(utf8BOM)); err != nil {
			return 0, err
		}
	}
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := r.Discard(1); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}
