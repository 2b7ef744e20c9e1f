package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func repeatedText(n int) string {
	alphabet := "abcdefghijklmnopqrstuvwxyz"
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(alphabet)
	}
	return sb.String()[:n]
}

func TestSplitOffsets(t *testing.T) {
	// 2400 chars, size 1000, overlap 200 must yield exactly three chunks
	// covering [0,1000), [800,1800), [1600,2400).
	text := repeatedText(2400)
	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, text[0:1000], chunks[0])
	require.Equal(t, text[800:1800], chunks[1])
	require.Equal(t, text[1600:2400], chunks[2])
}

func TestSplitAdjacentOverlap(t *testing.T) {
	text := repeatedText(2400)
	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-200:]
		require.Equal(t, prevTail, chunks[i][:200], "chunk %d must start with the previous tail", i)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"exact multiple", repeatedText(2400), 1000, 200},
		{"ragged tail", repeatedText(1001), 1000, 200},
		{"single chunk", "short", 1000, 200},
		{"no overlap", repeatedText(950), 100, 0},
		{"tiny stride", repeatedText(50), 10, 9},
		{"multibyte", strings.Repeat("日本語のテキスト、", 300), 1000, 200},
		{"mixed width", strings.Repeat("go言語 ", 500), 128, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			require.Equal(t, tt.text, Join(chunks, tt.overlap))
			for _, chunk := range chunks {
				require.LessOrEqual(t, len([]rune(chunk)), tt.size)
			}
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	chunks, err := Split("", 100, 10)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestSplitInvalidArgs(t *testing.T) {
	_, err := Split("text", 0, 0)
	require.Error(t, err)
	_, err = Split("text", -5, 0)
	require.Error(t, err)
	_, err = Split("text", 10, 10)
	require.Error(t, err)
	_, err = Split("text", 10, -1)
	require.Error(t, err)
}

func TestSplitMultibyteBoundaries(t *testing.T) {
	// Boundaries count runes: 10 three-byte runes with size 4, overlap 1
	// must never cut inside a rune.
	text := strings.Repeat("語", 10)
	chunks, err := Split(text, 4, 1)
	require.NoError(t, err)
	for _, chunk := range chunks {
		require.True(t, strings.HasPrefix(strings.Repeat("語", 4), chunk[:3]))
	}
	require.Equal(t, text, Join(chunks, 1))
}
