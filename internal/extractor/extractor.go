package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
)

// Extractor turns a document on disk into plain text
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// FileExtractor picks a reader by file extension
type FileExtractor struct{}

func New() *FileExtractor {
	return &FileExtractor{}
}

// extensions the ingester will pick up from a directory
func SupportedExtensions() []string {
	return []string{".pdf", ".txt", ".md"}
}

func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions() {
		if e == ext {
			return true
		}
	}

	return false
}

func (e *FileExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: read %s: %w", apperrors.ErrExtraction, path, err)
		}

		return string(data), nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", apperrors.ErrExtraction, filepath.Ext(path))
	}
}
