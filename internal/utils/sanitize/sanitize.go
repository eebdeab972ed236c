package sanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes all tags and attributes. bluemonday.Policy is safe for
// concurrent use once built; never mutate it after init.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Clean strips HTML from user text and normalizes whitespace. Newlines survive
// so multi-line note blocks keep their shape.
//
//   - "<p>hi</p>" -> "hi"
//   - "<b>a</b> <b>b</b>" -> "a b"
func Clean(s string) string {
	out := strings.TrimSpace(strict.Sanitize(s))
	out = html.UnescapeString(out)
	out = strings.ReplaceAll(out, " ", " ")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// Category normalizes a note category: cleaned and lower-cased so the list
// filter matches regardless of how users typed it.
func Category(s string) string {
	return strings.ToLower(Clean(s))
}

// ImageURL returns the URL if it is an absolute http(s) URL and "" otherwise.
// Image blocks only ever reference remote images.
func ImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}
