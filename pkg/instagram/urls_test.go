package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reelgrab/pkg/errors"
)

func TestIsContentURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"https reel", "https://www.instagram.com/reel/ABC123/", true},
		{"https post", "https://www.instagram.com/p/XyZ-_9/", true},
		{"http scheme", "http://www.instagram.com/p/ABC123/", true},
		{"bare host", "https://instagram.com/reel/ABC123/", true},
		{"schemeless", "www.instagram.com/reel/ABC123/", true},
		{"no trailing slash", "https://www.instagram.com/p/ABC123", true},
		{"query string", "https://www.instagram.com/reel/ABC123/?igsh=xyz", true},
		{"reels alias", "https://www.instagram.com/reels/ABC123/", true},
		{"igtv alias", "https://www.instagram.com/tv/ABC123/", true},
		{"uppercase host", "https://WWW.INSTAGRAM.COM/reel/ABC123/", true},
		{"username prefix", "https://www.instagram.com/someuser/p/ABC123/", true},
		{"explicit port", "https://www.instagram.com:443/p/ABC123/", true},

		{"wrong host", "https://www.example.com/reel/ABC123/", false},
		{"lookalike host", "https://notinstagram.com/reel/ABC123/", false},
		{"subdomain host", "https://help.instagram.com/p/ABC123/", false},
		{"empty identifier", "https://www.instagram.com/p//", false},
		{"identifier is query only", "https://www.instagram.com/reel/?id=ABC", false},
		{"profile URL", "https://www.instagram.com/someuser/", false},
		{"stories URL", "https://www.instagram.com/stories/someuser/123/", false},
		{"root URL", "https://www.instagram.com/", false},
		{"empty string", "", false},
		{"whitespace", "   ", false},
		{"ftp scheme", "ftp://www.instagram.com/reel/ABC123/", false},
		{"not a URL", "definitely not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsContentURL(tt.url), "url: %s", tt.url)
		})
	}
}

func TestIsContentURLNeverPanics(t *testing.T) {
	hostile := []string{
		"http://[",
		"://missing",
		"https://",
		"%%%",
		"\x00\x01\x02",
		"https://www.instagram.com/%zz/reel/A/",
		string(make([]byte, 4096)),
	}

	for _, input := range hostile {
		assert.NotPanics(t, func() {
			IsContentURL(input)
		}, "input: %q", input)
	}
}

func TestParseShortcode(t *testing.T) {
	shortcode, err := ParseShortcode("https://www.instagram.com/reel/DEF456/")
	assert.NoError(t, err)
	assert.Equal(t, "DEF456", shortcode)

	shortcode, err = ParseShortcode("https://www.instagram.com/p/ABC123?utm_source=share")
	assert.NoError(t, err)
	assert.Equal(t, "ABC123", shortcode)

	_, err = ParseShortcode("https://www.example.com/reel/DEF456/")
	assert.Error(t, err)
	assert.True(t, errors.IsValidation(err), "expected a validation error, got %v", err)

	_, err = ParseShortcode("https://www.instagram.com/reel//")
	assert.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
