// Package ui renders export progress and run summaries for the command line.
//
// A Reporter plugs into the exporter as its Observer. On a terminal it keeps a
// single redrawn status line; when output is redirected it falls back to one
// structured log line per page so progress still reaches log files.
package ui
