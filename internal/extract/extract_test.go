package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

func TestExtractPlainText(t *testing.T) {
	out, err := Extract([]byte("hello\r\nworld\r\n"), "text/plain")
	require.NoError(t, err)
	require.Equal(t, "hello\nworld", out)
}

func TestExtractPlainTextCharsetParam(t *testing.T) {
	out, err := Extract([]byte("hello"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestExtractPlainTextInvalidUTF8(t *testing.T) {
	out, err := Extract([]byte{'a', 0xff, 'b'}, "text/plain")
	require.NoError(t, err)
	require.Contains(t, out, "a")
	require.Contains(t, out, "b")
	require.Contains(t, out, "�")
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extract([]byte("x"), "application/zip")
	require.ErrorIs(t, err, appErr.ErrUnsupportedFormat)
}

func TestExtractMarkdownStripsStructure(t *testing.T) {
	src := "# Title\n\nSome **bold** text with a [link](https://example.com).\n\n- item one\n- item two\n"
	out, err := Extract([]byte(src), "text/markdown")
	require.NoError(t, err)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "bold")
	require.Contains(t, out, "link")
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "](")
	require.NotContains(t, out, "# ")
}

func TestExtractMarkdownKeepsCodeBlocks(t *testing.T) {
	src := "Intro\n\n```go\nfunc main() {}\n```\n"
	out, err := Extract([]byte(src), "text/markdown")
	require.NoError(t, err)
	require.Contains(t, out, "func main() {}")
	require.NotContains(t, out, "```")
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract([]byte("definitely not a pdf"), "application/pdf")
	require.ErrorIs(t, err, appErr.ErrCorruptFile)
}

func TestMimeForFile(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{name: "notes.txt", want: "text/plain"},
		{name: "README.md", want: "text/markdown"},
		{name: "guide.MARKDOWN", want: "text/markdown"},
		{name: "handbook.pdf", want: "application/pdf"},
		{name: "archive.zip", want: ""},
		{name: "noext", want: ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MimeForFile(tc.name), tc.name)
	}
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("text/plain"))
	require.True(t, Supported("text/markdown"))
	require.True(t, Supported("application/pdf"))
	require.False(t, Supported("application/zip"))
}
