package tickets

import (
	"regexp"
	"strings"
)

// maxChannelName is the longest channel name Discord accepts.
const maxChannelName = 100

var (
	invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)
	repeatedDashes   = regexp.MustCompile(`-{2,}`)
)

// SanitizeChannelName turns free text into a valid text channel name.
// An empty string is returned when nothing usable is left.
func SanitizeChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = invalidNameChars.ReplaceAllString(name, "-")
	name = repeatedDashes.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if len(name) > maxChannelName {
		name = strings.TrimRight(name[:maxChannelName], "-")
	}
	return name
}
