package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// PostEndpoint is the GraphQL endpoint for single-post metadata
	PostEndpoint = "/graphql/query/"

	// PostQueryHash is the query hash for resolving a post by shortcode
	PostQueryHash = "b3055c01b4b222b8a47dc12b090e4e64"
)

// PostInfoURL constructs the URL for fetching one post's metadata by shortcode
func PostInfoURL(base, shortcode string) string {
	params := url.Values{}
	params.Set("query_hash", PostQueryHash)
	params.Set("variables", fmt.Sprintf(`{"shortcode":"%s"}`, shortcode))

	return fmt.Sprintf("%s%s?%s", base, PostEndpoint, params.Encode())
}

// ReelURL constructs the canonical public URL for a reel
func ReelURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/reel/%s/", BaseURL, shortcode)
}
