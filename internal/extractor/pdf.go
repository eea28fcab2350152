package extractor

import (
	"bytes"
	"fmt"
	"io"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"github.com/ledongthuc/pdf"
)

func extractPDF(path string) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf %s: %v", apperrors.ErrExtraction, path, r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", apperrors.ErrExtraction, path, err)
	}

	defer f.Close() //nolint:errcheck

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read text of %s: %w", apperrors.ErrExtraction, path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: copy text of %s: %w", apperrors.ErrExtraction, path, err)
	}

	return buf.String(), nil
}
