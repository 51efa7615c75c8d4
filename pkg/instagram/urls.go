package instagram

import (
	"net/url"
	"strings"

	"reelgrab/pkg/errors"
)

// contentMarkers are the path segments that precede a content identifier
var contentMarkers = map[string]bool{
	"p":     true,
	"reel":  true,
	"reels": true,
	"tv":    true,
}

// IsContentURL reports whether raw is a well-formed Instagram post or reel
// URL. It fails closed: any parse problem yields false, never a panic.
func IsContentURL(raw string) bool {
	_, err := ParseShortcode(raw)
	return err == nil
}

// ParseShortcode extracts the content identifier from a post or reel URL
func ParseShortcode(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New(errors.ErrorTypeValidation, "empty URL")
	}

	// Shared links often arrive without a scheme.
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeValidation, "unparseable URL", err)
	}

	switch parsed.Scheme {
	case "http", "https":
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unsupported scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host != "instagram.com" && host != "www.instagram.com" {
		return "", errors.Newf(errors.ErrorTypeValidation, "host %q is not Instagram", host)
	}

	segments := strings.Split(strings.Trim(parsed.EscapedPath(), "/"), "/")
	for i, segment := range segments {
		if contentMarkers[strings.ToLower(segment)] {
			if i+1 < len(segments) && segments[i+1] != "" {
				return segments[i+1], nil
			}
			return "", errors.New(errors.ErrorTypeValidation, "missing content identifier")
		}
	}

	return "", errors.New(errors.ErrorTypeValidation, "URL does not point at a post or reel")
}
