// Package exporter drives a resumable bulk export of a Solr collection.
//
// A Driver moves through INIT, FETCHING, SINKING, CHECKPOINTING and PACING
// until it reaches DONE or ABORTED:
//
//	INIT          load the checkpoint; open a cursor when starting fresh
//	FETCHING      request the next page, retrying failures at a fixed delay
//	SINKING       append the page to the output log (failure aborts)
//	CHECKPOINTING persist the next cursor and the running record count
//	PACING        pause before the next request while records remain
//
// The run is DONE when a page comes back empty or its cursor did not move.
// The checkpoint only advances after the page's records are on disk, so a
// rerun after any failure continues from the last confirmed page without
// duplicating or skipping records. Cancelling the context ends the run with
// ErrInterrupted after a final checkpoint save.
package exporter
