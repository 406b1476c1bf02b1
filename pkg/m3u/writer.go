package m3u

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
)

// typedKeys are the attribute keys promoted to Channel fields. They are
// re-emitted from those fields, so they are excluded from the pass-through
// attribute bag when writing.
var typedKeys = map[string]bool{
	"tvg-id":      true,
	"tvg-name":    true,
	"tvg-logo":    true,
	"group-title": true,
}

// Write serializes channels as an extended M3U playlist.
func Write(w io.Writer, channels []Channel) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		buf.WriteString(extinfLine(ch))
		buf.WriteString("\n")
		buf.WriteString(ch.URL)
		buf.WriteString("\n")
	}
	_, err := io.Copy(w, buf)
	return err
}

// Rewrite serializes channels as an extended M3U playlist with every stream
// URL replaced by a relay URL under baseURL, so playback goes through the
// proxy instead of hitting the upstream directly.
func Rewrite(channels []Channel, baseURL string) []byte {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		buf.WriteString(extinfLine(ch))
		buf.WriteString("\n")
		buf.WriteString(StreamPath(baseURL, ch.URL))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// StreamPath returns the relay URL for a stream target: the original URL is
// query-escaped into the path so the relay handler can recover it verbatim.
func StreamPath(baseURL, target string) string {
	return fmt.Sprintf("%s/stream/%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(target))
}

func extinfLine(ch Channel) string {
	var sb strings.Builder
	sb.WriteString("#EXTINF:-1")

	if ch.TvgID != "" {
		fmt.Fprintf(&sb, " tvg-id=%q", ch.TvgID)
	}
	if ch.Logo != "" {
		fmt.Fprintf(&sb, " tvg-logo=%q", ch.Logo)
	}
	group := ch.Group
	if group == "" {
		group = DefaultGroup
	}
	fmt.Fprintf(&sb, " group-title=%q", group)

	// Pass-through attributes in sorted order so output is deterministic.
	extras := make([]string, 0, len(ch.Attrs))
	for k := range ch.Attrs {
		if !typedKeys[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(&sb, " %s=%q", k, ch.Attrs[k])
	}

	sb.WriteString(",")
	sb.WriteString(ch.Title)
	return sb.String()
}
