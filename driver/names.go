package driver

import (
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// SanitizeName turns a topic title into its directory name: letters, digits,
// hyphens and underscores only, lowercase, at most 50 characters
func SanitizeName(title string) string {
	name := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "")
	name = spaceRuns.ReplaceAllString(name, "_")
	name = strings.ToLower(name)
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		return "topic"
	}
	return name
}
