package youtube

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidReference      = errors.New("invalid video reference")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
)

// Fragment is one timed caption line as served by the transcript source.
type Fragment struct {
	Text     string
	Start    float64
	Duration float64
}

// Metadata is best-effort: every field degrades independently to a
// placeholder, it never blocks ingestion.
type Metadata struct {
	Title        string
	Description  string
	ChannelTitle string
	ThumbnailURL string
	Duration     string
}

// Ordered: first match wins.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([^&\n?#]+)`),
}

// ResolveID extracts a canonical video id from a URL or returns the input
// unchanged when it does not look like a YouTube URL at all. The absence
// heuristic is deliberately loose: arbitrary non-URL input passes through as
// a literal id.
func ResolveID(urlOrID string) (string, error) {
	if !strings.Contains(urlOrID, "youtube.com") && !strings.Contains(urlOrID, "youtu.be") {
		return urlOrID, nil
	}
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(urlOrID); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidReference
}

// Flatten joins fragment texts in order, collapsing all whitespace runs to
// single spaces and trimming the ends. Total over any input including empty.
func Flatten(fragments []Fragment) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		parts = append(parts, f.Text)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
