package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"solrexport/pkg/errors"
	"solrexport/pkg/logger"
)

// Options controls conversion output
type Options struct {
	// Indent is the per-level indentation; two spaces when empty
	Indent string
	Logger logger.Logger
}

// Stats summarizes a conversion
type Stats struct {
	Records int64
	Skipped int64
}

// ToArray converts JSONL read from in into a single indented JSON array on out.
// Blank lines are ignored. Lines that are not valid JSON are logged and
// skipped.
func ToArray(ctx context.Context, in io.Reader, out io.Writer, opts Options) (Stats, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	var stats Stats
	lines := newLineReader(bufio.NewReaderSize(in, 64*1024))
	arr := newArrayWriter(out, opts.Indent)
	if err := arr.open(); err != nil {
		return stats, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line, n, err := lines.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, errors.New(errors.ErrorTypeParsing, 0, err, "read line %d: %v", n, err)
		}
		if len(line) == 0 {
			continue
		}

		if !json.Valid(line) {
			stats.Skipped++
			log.WarnWithFields("skipping malformed line", map[string]interface{}{
				"line":  n,
				"bytes": len(line),
			})
			continue
		}

		if err := arr.write(line); err != nil {
			return stats, errors.New(errors.ErrorTypeSink, 0, err, "write record from line %d: %v", n, err)
		}
		stats.Records++
	}

	if err := arr.close(); err != nil {
		return stats, errors.New(errors.ErrorTypeSink, 0, err, "write output: %v", err)
	}
	return stats, nil
}
