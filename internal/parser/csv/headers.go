package csv

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// NormalizeHeaders maps raw header cells to column names.
//
//   - a UTF-8 BOM on the first cell is dropped
//   - headerMap entries (keyed by the trimmed raw header) win
//   - otherwise, when fold is true, names are folded by FoldName; when false
//     they are only trimmed
//   - empty names become col_<i>, and duplicates get a _<n> suffix so every
//     column name is unique
func NormalizeHeaders(h []string, headerMap map[string]string, fold bool) []string {
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		name, ok := headerMap[c]
		if !ok {
			name = c
			if fold {
				name = FoldName(c)
			}
		}
		if name == "" {
			name = "col_" + strconv.Itoa(i)
		}
		if n := seen[name]; n > 0 {
			// Skip suffixes already taken by an earlier literal header.
			cand := name + "_" + strconv.Itoa(n+1)
			for seen[cand] > 0 {
				n++
				cand = name + "_" + strconv.Itoa(n+1)
			}
			seen[name] = n + 1
			name = cand
		}
		seen[name]++
		res[i] = name
	}
	return res
}

// FoldName converts arbitrary header text into a lowercase ASCII identifier:
//  1. lowercase
//  2. strip accents (NFD, remove Mn, NFC)
//  3. keep [a-z0-9_]; space, dash and dot become underscore; drop others
//
// An input with nothing left returns "".
func FoldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
