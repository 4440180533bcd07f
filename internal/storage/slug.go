package storage

import "strings"

var slugReplacer = strings.NewReplacer(
	"–", "-", "—", "-", " ", "_",
	"ó", "o", "í", "i", "á", "a", "é", "e", "ú", "u", "ñ", "n",
)

// Slugify lowercases a display name and strips the accents and dashes that
// show up in site names.
func Slugify(s string) string {
	return slugReplacer.Replace(strings.ToLower(s))
}

// SafeFilename reduces an arbitrary (user-supplied) name to slug characters
// safe to store on disk.
func SafeFilename(name string) string {
	slug := Slugify(name)
	var b strings.Builder
	for _, ch := range slug {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9',
			ch == '_', ch == '-', ch == '.':
			b.WriteRune(ch)
		}
	}
	return b.String()
}
