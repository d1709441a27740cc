// Package solr talks to a Solr collection's query handler over HTTP.
//
// Fetch walks the collection with cursorMark pagination: pass StartCursor (or the
// cursor returned by Prime) and then each page's NextCursor. The walk is over when
// a page comes back empty or its NextCursor equals the cursor that was sent.
//
//	client := solr.NewClient(&cfg.Solr, log)
//	page, err := client.Fetch(ctx, cursor, 500)
//
// Failures are *errors.Error values classified by HTTP status, transport failure
// or undecodable body. The client performs no retries.
package solr
