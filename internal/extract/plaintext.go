package extract

import (
	"strings"
	"unicode/utf8"
)

func init() {
	Register("text/plain", extractPlainText)
}

func extractPlainText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Re-decode with replacement runes rather than rejecting the file; text
	// exports frequently carry a few stray bytes.
	var sb strings.Builder
	sb.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		sb.WriteRune(r)
		data = data[size:]
	}
	return sb.String(), nil
}
