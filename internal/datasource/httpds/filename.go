package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// filenameCleaner replaces sequences of characters that are unsafe in file
// names with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HashString returns a stable SHA1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// StageName derives a filesystem-safe base name for a staged download. It
// keeps the URL's last path segment (so suffixes such as .csv.gz survive for
// format detection) and falls back to a hash of the URL when the path is
// empty or the URL cannot be parsed.
func StageName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return HashString(rawURL)
	}
	clean := strings.Trim(filenameCleaner.ReplaceAllString(base, "_"), "_")
	if clean == "" || strings.Trim(clean, ".") == "" {
		return HashString(rawURL)
	}
	return clean
}
