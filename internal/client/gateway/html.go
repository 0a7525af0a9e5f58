package gateway

import (
	"html"
	"strings"
)

// StripHTML reduces the backend's rich message body to plain text: tags are
// dropped, block-level breaks become newlines, and entities are decoded.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return html.UnescapeString(strings.TrimSpace(s))
	}

	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	var tag strings.Builder
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>' && inTag:
			inTag = false
			if isBreakTag(tag.String()) {
				b.WriteByte('\n')
			}
		case inTag:
			tag.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(html.UnescapeString(b.String()))
}

// isBreakTag reports whether a tag body (without angle brackets) ends a
// visual line: <br>, <br/> or a closing </p>, </div>.
func isBreakTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.TrimSuffix(tag, "/")
	tag = strings.TrimSpace(tag)
	switch tag {
	case "br", "/p", "/div":
		return true
	}
	return false
}
