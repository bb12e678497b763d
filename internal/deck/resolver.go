// Package deck turns a submitted deck, local file or cloud URL, into the
// normalized facts the screening checks work on.
package deck

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/deckscreen/internal/models"
)

var remoteHosts = []struct {
	host   string
	format models.DeckFormat
}{
	{"docs.google.com", models.FormatGoogleSlides},
	{"figma.com", models.FormatFigma},
	{"canva.com", models.FormatCanva},
}

var extensions = map[string]models.DeckFormat{
	".pdf":      models.FormatPDF,
	".pptx":     models.FormatPPTX,
	".md":       models.FormatMarkdown,
	".markdown": models.FormatMarkdown,
	".key":      models.FormatKeynote,
}

// IsURL reports whether source is an absolute URL rather than a file path.
func IsURL(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Resolve classifies source. It never fails: anything it does not recognize
// is FormatUnsupported.
func Resolve(source string) models.DeckFormat {
	source = strings.TrimSpace(source)
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		host := strings.ToLower(u.Host)
		for _, r := range remoteHosts {
			if strings.Contains(host, r.host) {
				return r.format
			}
		}
		return models.FormatUnsupported
	}
	if f, ok := extensions[Extension(source)]; ok {
		return f
	}
	return models.FormatUnsupported
}

// Extension returns the lower-case extension of a file path, dot included.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
