// Package retry re-runs failing operations with a configurable backoff.
//
// The export loop retries page fetches at a fixed delay, forever unless a
// ceiling is configured:
//
//	cfg := retry.FixedDelayConfig(ctx, 10*time.Second, 0, log)
//	page, err := retry.DoWithResult(func() (*solr.Page, error) {
//		return client.Fetch(ctx, cursor, 500)
//	}, cfg)
//
// Waits observe the context, so cancellation ends a retry loop promptly with an
// error wrapping ctx.Err().
package retry
