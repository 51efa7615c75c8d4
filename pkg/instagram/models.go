package instagram

// PostResponse is the GraphQL envelope for single-post metadata
type PostResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Status          string `json:"status"`
	Data            struct {
		ShortcodeMedia *PostMedia `json:"shortcode_media"`
	} `json:"data"`
}

// PostMedia describes one post or reel
type PostMedia struct {
	ID            string  `json:"id"`
	Shortcode     string  `json:"shortcode"`
	IsVideo       bool    `json:"is_video"`
	Title         string  `json:"title"`
	VideoURL      string  `json:"video_url"`
	DisplayURL    string  `json:"display_url"`
	VideoDuration float64 `json:"video_duration"`

	Owner              Owner        `json:"owner"`
	EdgeMediaToCaption CaptionEdges `json:"edge_media_to_caption"`
}

// Owner identifies the account that published a post
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// CaptionEdges wraps the caption edge list
type CaptionEdges struct {
	Edges []CaptionEdge `json:"edges"`
}

// CaptionEdge wraps one caption node
type CaptionEdge struct {
	Node CaptionNode `json:"node"`
}

// CaptionNode holds the caption text
type CaptionNode struct {
	Text string `json:"text"`
}

// Caption returns the post's caption text, or empty if none exists
func (m *PostMedia) Caption() string {
	if m == nil || len(m.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return m.EdgeMediaToCaption.Edges[0].Node.Text
}

// DisplayTitle returns the best available human-readable title for a post
func (m *PostMedia) DisplayTitle() string {
	if m == nil {
		return ""
	}
	if m.Title != "" {
		return m.Title
	}
	if m.Owner.Username != "" {
		return m.Owner.Username + " - " + m.Shortcode
	}
	return m.Shortcode
}
