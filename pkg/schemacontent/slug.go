package schemacontent

import (
	"regexp"
	"strings"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapse   = regexp.MustCompile(`-{2,}`)
	slugWellFormed = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Slugify converts an arbitrary string into a URL-friendly slug.
// Example: "Hello, World! 2026" becomes "hello-world-2026".
func Slugify(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = slugInvalid.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = slugCollapse.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// validSlug reports whether s is already a well-formed slug.
func validSlug(s string) bool {
	return slugWellFormed.MatchString(s)
}
