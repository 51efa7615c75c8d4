// Package retry provides retry logic with configurable backoff for the
// transient failures the download pipeline runs into: flaky CDN responses,
// rate limited endpoints, and transcription API hiccups.
//
// Errors carrying a type from pkg/errors are consulted before retrying:
// network, rate limit, and server errors are retried, while validation,
// auth, and fatal engine errors surface immediately (a failed engine is
// handled by the fallback engine, not by hammering the same one).
//
// Usage:
//
//	cfg := retry.FromConfig(&appConfig.Retry, ctx, log)
//	post, err := retry.DoWithResult(func() (*instagram.PostMedia, error) {
//	    return client.FetchPost(ctx, shortcode)
//	}, cfg)
package retry
