package ingest

import (
	"path/filepath"
	"strings"

	"codeberg.org/guideelbac/server/internal/storage"
)

// filenames containing one of these are score tables
var DefaultScoreKeywords = []string{"score"}

// Classify infers the resource type from a filename alone
func Classify(filename string, keywords []string) storage.ResourceType {
	if len(keywords) == 0 {
		keywords = DefaultScoreKeywords
	}

	name := strings.ToLower(filepath.Base(filename))

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(name, kw) {
			return storage.ResourceScore
		}
	}

	return storage.ResourceGuide
}
