// Package text turns markup and entity laden feed text into plain text
package text

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict policy drops every tag, space keeps words from adjacent blocks apart
var policy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// Normalize strips tags, decodes named and numeric entities and collapses whitespace.
// Feeds often double-encode markup (&lt;p&gt;), so the strip/decode is done twice.
// Never fails, malformed input degrades to whatever text could be recovered.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	for range 2 {
		s = html.UnescapeString(policy.Sanitize(s))
	}
	return strings.Join(strings.Fields(s), " ")
}
