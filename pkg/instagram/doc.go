// Package instagram provides the direct Instagram web client used by the
// native download engine, plus URL validation for post and reel links.
//
// Features:
// - Typed errors for every failure class (network, auth, rate limit, parsing)
// - Request logging with durations on every round trip
// - Optional session cookie authentication
// - Single-post metadata resolution by shortcode
// - Streaming media downloads with atomic on-disk writes
// - Pure, I/O-free URL validation that fails closed
//
// Usage:
//
//	client := instagram.NewClient(&cfg.Instagram, 30*time.Second, log)
//
//	shortcode, err := instagram.ParseShortcode("https://www.instagram.com/reel/ABC123/")
//	if err != nil {
//	    // not a post or reel URL
//	}
//
//	post, err := client.FetchPost(ctx, shortcode)
//	if err != nil {
//	    // typed: errors.IsType(err, errors.ErrorTypeNotFound) etc.
//	}
//
//	_, err = client.DownloadTo(ctx, post.VideoURL, "video1.mp4")
package instagram
