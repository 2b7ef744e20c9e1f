// Package extract turns raw uploaded bytes into normalized plain text.
// Extractors are registered per MIME type; unknown types fail with
// ErrUnsupportedFormat before any processing starts.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

type Extractor func(data []byte) (string, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Extractor{}
)

func Register(mimeType string, fn Extractor) {
	key := strings.ToLower(strings.TrimSpace(mimeType))
	if key == "" || fn == nil {
		return
	}
	registryMu.Lock()
	registry[key] = fn
	registryMu.Unlock()
}

// Extract converts raw file bytes with a declared MIME type into normalized
// plain text: unix newlines, no leading/trailing whitespace.
func Extract(data []byte, mimeType string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	registryMu.RLock()
	fn := registry[key]
	registryMu.RUnlock()
	if fn == nil {
		return "", fmt.Errorf("%w: %s", appErr.ErrUnsupportedFormat, mimeType)
	}
	text, err := fn(data)
	if err != nil {
		return "", err
	}
	return normalize(text), nil
}

// MimeForFile maps a file name to the MIME type used as registry key. The
// extension drives the choice; browsers are unreliable about Content-Type for
// markdown in particular.
func MimeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}

func Supported(mimeType string) bool {
	key := strings.ToLower(strings.TrimSpace(mimeType))
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[key] != nil
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
