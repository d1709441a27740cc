// Package sink writes exported records to an append-only JSON Lines file.
//
// Each record becomes exactly one line. Append flushes and fsyncs before it
// returns, so once it succeeds the page is on disk and may be checkpointed.
// Existing content is never rewritten; reopening a file continues after it.
package sink
