package commerce

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Handle turns a legacy slug into a URL handle: percent-decoded, lower case,
// accents folded, every run of other characters replaced by a single dash.
// Letters outside the Latin script are kept. When nothing usable remains the
// fallback is returned.
func Handle(slug, fallback string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, slug)
	if err != nil {
		folded = slug
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	handle := strings.TrimSuffix(b.String(), "-")
	if handle == "" {
		return fallback
	}
	return handle
}
