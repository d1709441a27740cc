// Package logger provides the structured logging interface used across solrexport.
//
// It wraps zerolog with a small interface so that components can be handed a
// logger explicitly (and tests can hand them a NopLogger or TestLogger):
//
//	log, err := logger.New(&cfg.Logging)
//	log.WithField("collection", "topic_tanvd").Info("Export starting")
//	log.InfoWithFields("Page exported", map[string]interface{}{
//	    "records": 500,
//	    "cursor":  "AoE/...",
//	})
//
// Console output is human readable and goes to stderr. Setting logging.file
// additionally appends JSON events to that file.
package logger
