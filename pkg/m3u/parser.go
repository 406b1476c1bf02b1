// Package m3u provides parsing and generation of extended M3U playlists.
package m3u

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultGroup is assigned to channels that carry no group-title attribute.
	DefaultGroup = "Uncategorized"
	// DefaultTitle is assigned to channels whose EXTINF line yields no usable name.
	DefaultTitle = "Unknown Channel"
)

// attrRegex matches one key="value" attribute on an EXTINF line. Attributes
// are extracted by repeated matching, so an entry may carry any number of
// them, including keys this package knows nothing about.
var attrRegex = regexp.MustCompile(`([\w.-]+)="([^"]*)"`)

// Channel represents a single playable entry in an M3U playlist.
type Channel struct {
	Title string            `json:"title"`
	URL   string            `json:"url"`
	Logo  string            `json:"logo,omitempty"`
	Group string            `json:"group"`
	TvgID string            `json:"tvg_id,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Skipped describes one playlist entry that was dropped during parsing.
// Line is the 1-based number of the offending line in the input.
type Skipped struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Parse extracts channel entries from extended M3U playlist data.
//
// Parsing is tolerant: malformed entries are dropped and reported in the
// returned Skipped slice instead of failing the whole playlist. Parse never
// fails; input with no recognizable entries yields an empty channel list.
// Every returned channel has a non-empty Title and an http or https URL, in
// the same relative order as their EXTINF lines appeared in the input.
func Parse(data []byte) ([]Channel, []Skipped) {
	return ParseString(string(data))
}

// ParseString is Parse for string input.
func ParseString(content string) ([]Channel, []Skipped) {
	var channels []Channel
	var skipped []Skipped

	var pending *Channel
	pendingLine := 0

	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			continue

		case strings.HasPrefix(line, "#EXTM3U"):
			// Informational header, at most meaningful once. Position is not
			// enforced.
			continue

		case strings.HasPrefix(line, "#EXTINF"):
			if pending != nil {
				skipped = append(skipped, Skipped{Line: pendingLine, Reason: "no URL line follows EXTINF"})
			}
			ch, ok := parseExtinf(line)
			if !ok {
				skipped = append(skipped, Skipped{Line: i + 1, Reason: "malformed EXTINF line"})
				pending = nil
				continue
			}
			pending = &ch
			pendingLine = i + 1

		case strings.HasPrefix(line, "http") && pending != nil:
			if err := validateStreamURL(line); err != nil {
				skipped = append(skipped, Skipped{Line: pendingLine, Reason: fmt.Sprintf("stream URL rejected: %v", err)})
				pending = nil
				continue
			}
			pending.URL = line
			channels = append(channels, *pending)
			pending = nil

		default:
			// Stray text, unknown directives and orphaned URL lines are
			// ignored.
		}
	}

	if pending != nil {
		skipped = append(skipped, Skipped{Line: pendingLine, Reason: "no URL line follows EXTINF"})
	}

	return channels, skipped
}

// parseExtinf decomposes one EXTINF line into a channel without a URL.
// The expected shape is #EXTINF:<duration> <key="value" ...>,<title>. The
// duration carries no meaning here and is discarded, missing or not.
func parseExtinf(line string) (Channel, bool) {
	rest := strings.TrimPrefix(line, "#EXTINF")
	rest = strings.TrimPrefix(rest, ":")

	// Split attributes from the trailing title at the first comma that is
	// not inside a quoted attribute value.
	attrSegment := rest
	titleText := ""
	hasComma := false
	inQuote := false
	for i, r := range rest {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if r == ',' && !inQuote {
			attrSegment = rest[:i]
			titleText = rest[i+1:]
			hasComma = true
			break
		}
	}

	var attrs map[string]string
	for _, m := range attrRegex.FindAllStringSubmatch(attrSegment, -1) {
		if attrs == nil {
			attrs = make(map[string]string)
		}
		// Later occurrences of the same key overwrite earlier ones.
		attrs[strings.ToLower(m[1])] = m[2]
	}

	// A line with neither a title separator nor a single attribute carries
	// nothing usable.
	if !hasComma && len(attrs) == 0 {
		return Channel{}, false
	}

	ch := Channel{
		Logo:  attrs["tvg-logo"],
		TvgID: attrs["tvg-id"],
		Attrs: attrs,
	}

	// Title precedence: tvg-name attribute, then the trailing title text,
	// then the placeholder. An empty tvg-name counts as absent.
	switch {
	case strings.TrimSpace(attrs["tvg-name"]) != "":
		ch.Title = strings.TrimSpace(attrs["tvg-name"])
	case strings.TrimSpace(titleText) != "":
		ch.Title = strings.TrimSpace(titleText)
	default:
		ch.Title = DefaultTitle
	}

	// Group labels are opaque: no normalization beyond the absent/empty
	// fallback to the sentinel.
	if g := attrs["group-title"]; g != "" {
		ch.Group = g
	} else {
		ch.Group = DefaultGroup
	}

	return ch, true
}

func validateStreamURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
