package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FallbackCoverURL is used when the catalog returns no usable artwork.
const FallbackCoverURL = "https://images.unsplash.com/photo-1470225620780-dba8ba36b745?w=500&auto=format&fit=crop&q=60"

// Client provides access to the remote catalog search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new catalog client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// searchEnvelope is the response wrapper returned by the search endpoint.
type searchEnvelope struct {
	Data struct {
		Results []searchResult `json:"results"`
	} `json:"data"`
}

// searchResult mirrors the catalog's loosely-typed song document. Album,
// image, duration and downloadUrl all vary in shape between deployments,
// so they are decoded leniently.
type searchResult struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PrimaryArtists string          `json:"primaryArtists"`
	Album          json.RawMessage `json:"album"`
	Image          json.RawMessage `json:"image"`
	Duration       json.RawMessage `json:"duration"`
	DownloadURL    json.RawMessage `json:"downloadUrl"`
}

// Search queries the catalog and returns playable tracks. Entries with no
// resolvable audio source are dropped, titles have HTML entities decoded,
// and insecure media URLs are rewritten to https.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/api/search/songs?query=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	tracks := make([]Track, 0, len(envelope.Data.Results))
	for _, item := range envelope.Data.Results {
		track := item.toTrack()
		if !track.Playable() {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (r searchResult) toTrack() Track {
	title := "Unknown Title"
	if r.Name != "" {
		title = html.UnescapeString(r.Name)
	}

	artist := r.PrimaryArtists
	if artist == "" {
		artist = "Unknown Artist"
	}

	album := stringOrObjectName(r.Album)
	if album == "" {
		album = "Unknown Album"
	}

	// Artwork: prefer 500px, fall back to 150px, then whatever is there.
	cover := variantURL(r.Image, "500", "150")
	if cover == "" {
		cover = FallbackCoverURL
	}

	// Audio: prefer 320kbps, fall back to 160kbps, then whatever is there.
	audio := variantURL(r.DownloadURL, "320", "160")

	return Track{
		ID:              r.ID,
		Title:           title,
		Artist:          artist,
		Album:           album,
		CoverURL:        secureURL(cover),
		DurationSeconds: parseSeconds(r.Duration),
		AudioURL:        secureURL(audio),
	}
}

// mediaVariant is one quality-ranked entry of an image or downloadUrl list.
// Older deployments use "link", newer ones "url".
type mediaVariant struct {
	Quality string `json:"quality"`
	Link    string `json:"link"`
	URL     string `json:"url"`
}

func (v mediaVariant) href() string {
	if v.Link != "" {
		return v.Link
	}
	return v.URL
}

// variantURL extracts a URL from a raw field that is either a plain string
// or a quality-ranked list. Quality preferences are tried in order; the
// fallback is the last entry (usually the highest quality), then the first.
func variantURL(raw json.RawMessage, prefs ...string) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var variants []mediaVariant
	if err := json.Unmarshal(raw, &variants); err != nil || len(variants) == 0 {
		return ""
	}

	for _, pref := range prefs {
		for _, v := range variants {
			if v.Quality != "" && strings.Contains(v.Quality, pref) && v.href() != "" {
				return v.href()
			}
		}
	}
	if href := variants[len(variants)-1].href(); href != "" {
		return href
	}
	return variants[0].href()
}

// stringOrObjectName decodes a field that is either a plain string or an
// object with a "name" key.
func stringOrObjectName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

// parseSeconds decodes a duration that is either a number or a numeric
// string. Unparseable values mean the duration is unknown.
func parseSeconds(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// secureURL upgrades http URLs to https to avoid mixed-content refusals.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http:") {
		return "https:" + strings.TrimPrefix(u, "http:")
	}
	return u
}
