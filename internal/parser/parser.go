package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
)

// SourcePage is a parsed product page. It lives for one pipeline pass.
type SourcePage struct {
	URL string
	Doc *goquery.Document
}

type Parser interface {
	Extract(page *SourcePage) (models.RawFields, []*ExtractionError)
}

// ExtractionError records a field that failed unexpectedly and fell back to
// its default.
type ExtractionError struct {
	Field string
	Cause string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Cause)
}

// Parse builds a SourcePage from raw HTML.
func Parse(url, html string) (*SourcePage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &SourcePage{URL: url, Doc: doc}, nil
}
