package linkdb

import (
	"strings"

	"github.com/ronny/linkdb/models"
)

// NewLink builds the record stored for validated options: the description
// ends with a period, keywords are never nil.
func NewLink(opts *CreateOptions) *models.Link {
	keywords := make([]string, len(opts.Keywords))
	copy(keywords, opts.Keywords)

	return &models.Link{
		ID:          opts.ID,
		Description: NormalizeDescription(opts.Description),
		ShortURL:    opts.ShortURL,
		Keywords:    keywords,
	}
}

// NormalizeDescription appends a period unless description already ends with
// one.
func NormalizeDescription(description string) string {
	if strings.HasSuffix(description, ".") {
		return description
	}
	return description + "."
}
