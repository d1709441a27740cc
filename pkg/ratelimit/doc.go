// Package ratelimit paces requests to the remote index.
//
// The export loop pauses a fixed interval after each page while work remains:
//
//	pacer := ratelimit.NewFixedInterval(10 * time.Second)
//	if err := pacer.Wait(ctx); err != nil {
//		// interrupted
//	}
package ratelimit
