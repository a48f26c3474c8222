// internal/reconcile/parser.go

package reconcile

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParsedName is metadata recovered from a filename following the
// "artist - title.ext" or "artist - album - title.ext" convention.
type ParsedName struct {
	Artist string
	Title  string
	Album  string // empty for the two-part form
}

// ParseFileName splits a filename into its metadata parts. The second
// return value is false when the name does not follow either convention;
// callers must treat that as unparseable rather than guessing.
func ParseFileName(fileName string) (ParsedName, bool) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	parts := strings.Split(stem, " - ")

	switch len(parts) {
	case 2:
		p := ParsedName{Artist: strings.TrimSpace(parts[0]), Title: strings.TrimSpace(parts[1])}
		return p, p.Artist != "" && p.Title != ""
	case 3:
		p := ParsedName{
			Artist: strings.TrimSpace(parts[0]),
			Album:  strings.TrimSpace(parts[1]),
			Title:  strings.TrimSpace(parts[2]),
		}
		return p, p.Artist != "" && p.Title != ""
	default:
		return ParsedName{}, false
	}
}

// FileNameFor builds the conventional filename for the given metadata,
// keeping the original extension.
func FileNameFor(artist, album, title, ext string) string {
	artist = strings.TrimSpace(artist)
	album = strings.TrimSpace(album)
	title = strings.TrimSpace(title)
	if album != "" {
		return artist + " - " + album + " - " + title + ext
	}
	return artist + " - " + title + ext
}

// normalize prepares a string for comparison: NFC normalization, lower
// case, surrounding whitespace dropped. Filenames and database fields
// frequently differ only in Unicode composition.
func normalize(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// sameMeta reports whether two metadata strings are equal under normalize.
func sameMeta(a, b string) bool {
	return normalize(a) == normalize(b)
}
