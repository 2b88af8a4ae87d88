// Package normalize canonicalizes user input before validation and storage.
package normalize

import (
	"regexp"
	"strings"
)

// Email trims and lower-cases an address. Emails are unique after this.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding space and preserves case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lower-cases a role name.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	slugSpace   = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]`)
)

// Slug derives a status slug from a title: lower-case, whitespace runs
// become "_", anything outside [a-z0-9_] is dropped.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugSpace.ReplaceAllString(s, "_")
	return slugInvalid.ReplaceAllString(s, "")
}
