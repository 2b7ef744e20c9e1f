// Package chunker splits normalized text into fixed-size overlapping
// segments. Boundaries are defined over decoded runes, not bytes, so the
// split and the round-trip reassembly behave the same for multi-byte text.
package chunker

import "fmt"

// Split cuts text into chunks of at most size runes starting at offsets
// 0, size-overlap, 2*(size-overlap), ... until the tail is consumed. The
// overlapping prefix of every chunk after the first is taken from the tail
// of the previous chunk rather than re-sliced from the source, so joining
// the chunks with Join always reproduces the input exactly.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []string
	for start := 0; ; start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if start == 0 {
			chunks = append(chunks, string(runes[start:end]))
		} else {
			prev := []rune(chunks[len(chunks)-1])
			head := prev[len(prev)-overlap:]
			chunks = append(chunks, string(head)+string(runes[start+overlap:end]))
		}
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Join reassembles chunks produced by Split, dropping the overlapping prefix
// of every chunk after the first.
func Join(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	out := []rune(chunks[0])
	for _, chunk := range chunks[1:] {
		runes := []rune(chunk)
		if overlap > len(runes) {
			continue
		}
		out = append(out, runes[overlap:]...)
	}
	return string(out)
}
