package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var transliterator = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
	"à", "a", "á", "a", "â", "a",
	"è", "e", "é", "e", "ê", "e",
	"ì", "i", "í", "i", "î", "i",
	"ò", "o", "ó", "o", "ô", "o",
	"ù", "u", "ú", "u", "û", "u",
	"ç", "c", "ñ", "n",
	"&", "-und-",
)

// Generate creates a URL-friendly slug from the given name. German umlauts are
// transliterated the way shop SEO URLs spell them.
//
// Examples:
//   - "Herren Bekleidung" → "herren-bekleidung"
//   - "Größe & Passform" → "groesse-und-passform"
func Generate(name string) string {
	s := transliterator.Replace(strings.TrimSpace(name))
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Path joins slugs of the given segments into a URL path with leading and
// trailing slashes. Segments that slug to nothing are skipped.
//
//	Path("Genusswelten", "Tees") == "/genusswelten/tees/"
func Path(segments ...string) string {
	var b strings.Builder
	b.WriteByte('/')
	for _, seg := range segments {
		if s := Generate(seg); s != "" {
			b.WriteString(s)
			b.WriteByte('/')
		}
	}
	return b.String()
}
