package extractor

import (
	"regexp"
	"strings"
)

const fence = "```"

// openingFence matches a leading fence plus an optional language tag word.
var openingFence = regexp.MustCompile("^```[ \t]*(?:[A-Za-z][A-Za-z0-9_+-]*)?")

// StripCodeFence removes an optional leading ``` (with optional language tag)
// and an optional trailing ``` from model output.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, fence) {
		s = strings.TrimSpace(openingFence.ReplaceAllString(s, ""))
	}
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}
