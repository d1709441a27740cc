package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"solrexport/pkg/errors"
)

// DefaultStripField is the index-internal version stamp that makes re-import
// fail with version conflicts
const DefaultStripField = "_version_"

// StripField removes the top-level key field from every record read from in
// and writes the result to out. JSON array input yields an indented array;
// anything else is treated as JSONL and written back as JSONL. It returns the
// number of records that carried the field.
func StripField(in io.Reader, out io.Writer, field string) (int, error) {
	if field == "" {
		field = DefaultStripField
	}

	r := bufio.NewReaderSize(in, 64*1024)
	first, err := firstByte(r)
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New(errors.ErrorTypeParsing, 0, err, "read input: %v", err)
	}

	if first == '[' {
		return stripArray(r, out, field)
	}
	return stripLines(r, out, field)
}

func stripLines(r *bufio.Reader, out io.Writer, field string) (int, error) {
	w := bufio.NewWriterSize(out, 64*1024)
	lines := newLineReader(r)
	touched := 0
	var buf bytes.Buffer

	for {
		line, n, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return touched, errors.New(errors.ErrorTypeParsing, 0, err, "read line %d: %v", n, err)
		}
		if len(line) == 0 {
			continue
		}

		doc, removed, err := removeKey(line, field)
		if err != nil {
			return touched, errors.New(errors.ErrorTypeParsing, 0, err, "line %d: %v", n, err)
		}
		if removed {
			touched++
		}

		buf.Reset()
		if err := json.Compact(&buf, doc); err != nil {
			return touched, errors.New(errors.ErrorTypeParsing, 0, err, "line %d: %v", n, err)
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			return touched, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
		}
	}

	if err := w.Flush(); err != nil {
		return touched, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
	}
	return touched, nil
}

func stripArray(r *bufio.Reader, out io.Writer, field string) (int, error) {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return 0, errors.New(errors.ErrorTypeParsing, 0, err, "read array: %v", err)
	}

	arr := newArrayWriter(out, defaultIndent)
	if err := arr.open(); err != nil {
		return 0, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
	}

	touched := 0
	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return touched, errors.New(errors.ErrorTypeParsing, 0, err, "record %d: %v", i, err)
		}

		doc, removed, err := removeKey(raw, field)
		if err != nil {
			return touched, errors.New(errors.ErrorTypeParsing, 0, err, "record %d: %v", i, err)
		}
		if removed {
			touched++
		}
		if err := arr.write(doc); err != nil {
			return touched, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return touched, errors.New(errors.ErrorTypeParsing, 0, err, "read array: %v", err)
	}
	if err := arr.close(); err != nil {
		return touched, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
	}
	return touched, nil
}

// removeKey drops field from the JSON object doc, keeping the remaining keys
// in their original order. doc is returned unchanged when field is absent.
func removeKey(doc []byte, field string) ([]byte, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false, fmt.Errorf("record is not a JSON object")
	}

	type member struct {
		key   string
		value json.RawMessage
	}
	var members []member
	found := false

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, err
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false, err
		}
		if key == field {
			found = true
			continue
		}
		members = append(members, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false, err
	}
	if !found {
		return doc, false, nil
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)

	b.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := enc.Encode(m.key); err != nil {
			return nil, false, err
		}
		b.Truncate(b.Len() - 1) // Encode appends a newline
		b.WriteByte(':')
		b.Write(m.value)
	}
	b.WriteByte('}')
	return b.Bytes(), true, nil
}
