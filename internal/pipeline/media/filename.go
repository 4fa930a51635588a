package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/kitmed/catalogsync/internal/catalog/domain"
)

const maxFilenameBytes = 100

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// FilenameForURL derives the stored filename for a remote asset: the URL path
// basename with the query dropped, extension lower-cased and validated per
// media type, and over-long names truncated deterministically so the same URL
// always lands on the same file.
func FilenameForURL(rawURL, mediaType string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("url %s has no usable basename", rawURL)
	}

	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))

	switch mediaType {
	case domain.MediaTypePDF:
		ext = ".pdf"
	default:
		if !imageExtensions[ext] {
			ext = ".jpg"
		}
	}

	if stem == "" {
		return "", fmt.Errorf("url %s has no usable basename", rawURL)
	}
	if len(stem)+len(ext) > maxFilenameBytes {
		limit := maxFilenameBytes - len(ext)
		// Back off to a rune boundary so the cut never leaves invalid UTF-8.
		for limit > 0 && !utf8.RuneStart(stem[limit]) {
			limit--
		}
		stem = stem[:limit]
	}
	return stem + ext, nil
}
