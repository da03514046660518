package geocoding

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	commaSpace    = regexp.MustCompile(`,\s*`)
)

// Normalize canonicalizes a free-text address for use as a cache key:
// lowercase, whitespace runs collapsed, whitespace after commas removed,
// leading/trailing whitespace trimmed. Idempotent. Never shown to users.
func Normalize(address string) string {
	if address == "" {
		return ""
	}
	s := strings.ToLower(address)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = commaSpace.ReplaceAllString(s, ",")
	return strings.TrimSpace(s)
}
