package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	appErr "github.com/knowhub-ai/knowhub/internal/pkg/errors"
)

func init() {
	Register("application/pdf", extractPDF)
}

// The pdf library panics on some malformed inputs instead of returning an
// error; recover turns those into ErrCorruptFile.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", appErr.ErrCorruptFile, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrCorruptFile, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrCorruptFile, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrCorruptFile, err)
	}
	return string(raw), nil
}
