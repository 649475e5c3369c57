package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultPlaylistTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	VideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// PlaylistExpander replaces playlist URLs with one pair per contained video
type PlaylistExpander struct {
	timeout time.Duration
	log     *logrus.Entry
}

// NewPlaylistExpander creates an expander with the default timeout
func NewPlaylistExpander(log *logrus.Entry) *PlaylistExpander {
	return &PlaylistExpander{
		timeout: DefaultPlaylistTimeout,
		log:     log,
	}
}

// SetTimeout sets the timeout for playlist lookups
func (p *PlaylistExpander) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Expand walks pairs in order and replaces every playlist URL with the
// playlist's videos, labeled by video title. When a playlist lookup fails
// the original pair is kept so the plain URL still gets a download attempt.
func (p *PlaylistExpander) Expand(ctx context.Context, pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, pair := range pairs {
		playlistID := ExtractPlaylistID(pair.URL)
		if playlistID == "" {
			out = append(out, pair)
			continue
		}

		expanded, err := p.expandOne(ctx, playlistID)
		if err != nil {
			if p.log != nil {
				p.log.WithField("playlist_id", playlistID).WithError(err).
					Warn("playlist expansion failed, keeping original URL")
			}
			out = append(out, pair)
			continue
		}
		out = append(out, expanded...)
	}
	return out
}

func (p *PlaylistExpander) expandOne(ctx context.Context, playlistID string) ([]Pair, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("get playlist items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("playlist %s has no videos", playlistID)
	}

	pairs := make([]Pair, 0, len(items))
	for _, it := range items {
		pairs = append(pairs, Pair{
			Label: it.Title,
			URL:   fmt.Sprintf(VideoURLTemplate, it.VideoID),
		})
	}
	return pairs, nil
}

// ExtractPlaylistID extracts the playlist ID from a URL, or returns an
// empty string when the URL is not a playlist
func ExtractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.Split(url, PlaylistParam)
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	if strings.Contains(id, ParamSeparator) {
		id = strings.Split(id, ParamSeparator)[0]
	}
	return id
}
