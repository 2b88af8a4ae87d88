// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Task descriptions accept a rich-text subset (formatting, lists, tables,
// links). Comments, titles and names accept no markup at all.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich  = richPolicy()
	plain = bluemonday.StrictPolicy()
)

func richPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "td", "th")
	return p
}

// Sanitize keeps safe formatting markup and drops scripts, event handlers,
// iframes and javascript: URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return rich.Sanitize(s)
}

// Plain strips every tag and trims surrounding space. The result is text,
// not HTML: entities are decoded and clients must escape it for display.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(s)))
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	open := strings.IndexByte(s, '<')
	return open < 0 || strings.IndexByte(s[open:], '>') < 0
}
