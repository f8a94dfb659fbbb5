package gmail

import (
	"strings"
)

// UnsubscribeMethod represents a single List-Unsubscribe entry
type UnsubscribeMethod struct {
	Type string // "mailto" or "http"
	URL  string
}

// parseListUnsubscribe parses the List-Unsubscribe header value (RFC 2369).
// Format: <mailto:unsub@example.com>, <https://example.com/unsub>
func parseListUnsubscribe(header string) []UnsubscribeMethod {
	var methods []UnsubscribeMethod

	for _, part := range strings.Split(header, "<") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		endIdx := strings.Index(part, ">")
		if endIdx == -1 {
			continue
		}

		url := strings.TrimSpace(part[:endIdx])
		lower := strings.ToLower(url)

		switch {
		case strings.HasPrefix(lower, "mailto:"):
			methods = append(methods, UnsubscribeMethod{Type: "mailto", URL: url})
		case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
			methods = append(methods, UnsubscribeMethod{Type: "http", URL: url})
		}
	}

	return methods
}

// UnsubscribeLink picks the link to show for a List-Unsubscribe header.
// HTTP links are preferred over mailto links; an empty string means none.
func UnsubscribeLink(header string) string {
	if header == "" {
		return ""
	}

	var mailto string
	for _, m := range parseListUnsubscribe(header) {
		if m.Type == "http" {
			return m.URL
		}
		if mailto == "" {
			mailto = m.URL
		}
	}
	return mailto
}
