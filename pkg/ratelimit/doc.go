// Package ratelimit paces requests against the Instagram web endpoints.
//
// The native download engine talks to Instagram directly, so it must stay
// well under the thresholds that trigger blocks and challenge pages. Two
// algorithms are provided:
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Suitable for burst traffic followed by quiet periods
//   - Default implementation used by the native engine
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - More accurate rate limiting over time
//
// All limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait(ctx) error - Block until a request is allowed or ctx ends
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// 60 requests per minute with a burst of 10
//	limiter := ratelimit.PerMinute(60, 10)
//
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // cancelled while waiting
//	}
//	// Proceed with request
package ratelimit
