package export

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// plainText strips markup from shop rich text and collapses whitespace.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	// Block ends become spaces so adjacent paragraphs don't run together.
	s = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ", "</p>", "</p> ", "</li>", "</li> ").Replace(s)
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// splitKeywords splits the shop's comma separated keyword field.
func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
