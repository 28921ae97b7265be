package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const watchPageLimit = 4 << 20 // watch pages run to a few MB of inlined JSON

var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Texts   []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Transcript fetches the caption track for a video and returns its timed
// fragments ordered by start offset. Videos without captions, and any
// transport failure along the way, surface as ErrTranscriptUnavailable.
func (c *Client) Transcript(ctx context.Context, videoID string) ([]Fragment, error) {
	page, err := c.fetch(ctx, c.watchURL(videoID))
	if err != nil {
		return nil, fmt.Errorf("%w: watch page: %v", ErrTranscriptUnavailable, err)
	}

	track, err := pickCaptionTrack(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscriptUnavailable, err)
	}

	raw, err := c.fetch(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("%w: caption track: %v", ErrTranscriptUnavailable, err)
	}

	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing captions: %v", ErrTranscriptUnavailable, err)
	}
	if len(doc.Texts) == 0 {
		return nil, fmt.Errorf("%w: empty caption track", ErrTranscriptUnavailable)
	}

	fragments := make([]Fragment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		fragments = append(fragments, Fragment{
			Text:     html.UnescapeString(t.Body),
			Start:    t.Start,
			Duration: t.Dur,
		})
	}
	sort.SliceStable(fragments, func(i, j int) bool { return fragments[i].Start < fragments[j].Start })
	return fragments, nil
}

// Metadata scrapes the watch page for display fields. Each field falls back
// to a placeholder on its own; a failed page fetch degrades the whole result
// to placeholders rather than failing the caller.
func (c *Client) Metadata(ctx context.Context, videoID string) Metadata {
	meta := Metadata{
		Title:        "Unknown Title",
		ChannelTitle: "Unknown Channel",
		ThumbnailURL: fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID),
	}

	page, err := c.fetch(ctx, c.watchURL(videoID))
	if err != nil {
		slog.WarnContext(ctx, "metadata fetch failed, using placeholders", "video_id", videoID, "error", err)
		return meta
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		slog.WarnContext(ctx, "metadata parse failed, using placeholders", "video_id", videoID, "error", err)
		return meta
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && title != "" {
		meta.Title = title
	} else if t := strings.TrimSuffix(doc.Find("title").First().Text(), " - YouTube"); t != "" {
		meta.Title = t
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.Description = desc
	} else if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = desc
	}
	if channel, ok := doc.Find(`link[itemprop="name"]`).Attr("content"); ok && channel != "" {
		meta.ChannelTitle = channel
	}
	if thumb, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && thumb != "" {
		meta.ThumbnailURL = thumb
	}
	if dur, ok := doc.Find(`meta[itemprop="duration"]`).Attr("content"); ok {
		meta.Duration = dur
	}

	return meta
}

func (c *Client) watchURL(videoID string) string {
	return fmt.Sprintf("%s/watch?v=%s", c.baseURL, videoID)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en-US,en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, watchPageLimit))
}

// pickCaptionTrack finds the inlined captionTracks array in the player
// response and returns the first track URL, preferring manually authored
// captions over ASR ones.
func pickCaptionTrack(page []byte) (string, error) {
	m := captionTracksRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no caption tracks on watch page")
	}

	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil {
		return "", fmt.Errorf("decoding caption tracks: %v", err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("empty caption track list")
	}

	pick := tracks[0]
	for _, t := range tracks {
		if t.Kind != "asr" {
			pick = t
			break
		}
	}

	return pick.BaseURL, nil
}
