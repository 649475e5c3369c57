package extract

import (
	"regexp"
	"strings"
)

// Pair is one submitted item: a human label and the media URL to fetch
type Pair struct {
	Label string
	URL   string
}

// urlPattern matches the first http(s) URL on a line
var urlPattern = regexp.MustCompile(`https?://\S+`)

// Pairs parses free-form multi-line input into ordered (label, URL) pairs.
// Each line containing a URL yields one pair; the label is the trimmed text
// preceding the URL and may be empty. Lines without a URL are skipped.
// Input order is preserved and defines enqueue order.
func Pairs(raw string) []Pair {
	var pairs []Pair
	for _, line := range strings.Split(raw, "\n") {
		loc := urlPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		pairs = append(pairs, Pair{
			Label: strings.TrimSpace(line[:loc[0]]),
			URL:   line[loc[0]:loc[1]],
		})
	}
	return pairs
}
