package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeTitle strips all markup from a short display string and caps it at max runes.
func SanitizeTitle(input string, max int) string {
	out := strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
	if max > 0 {
		if rs := []rune(out); len(rs) > max {
			out = string(rs[:max])
		}
	}
	return out
}
