package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/maltedev/catalog-scraper/internal/siteurl"
)

// strategy is one way of locating a field; ok reports a non-blank match.
type strategy func(doc *goquery.Document) (string, bool)

type listStrategy func(doc *goquery.Document) ([]string, bool)

type tableField int

const (
	fieldSupplier tableField = iota
	fieldOrigin
	fieldShippingMethod
	fieldShippingFee
	fieldQuantity
)

type keywordRule struct {
	field    tableField
	keywords []string
}

type DomeggookParser struct {
	origin string

	title       []strategy
	image       []strategy
	price       []strategy
	description []strategy
	categories  []listStrategy
	details     []listStrategy

	optionRows string
	rules      []keywordRule
}

func NewDomeggookParser(origin string) *DomeggookParser {
	if origin == "" {
		origin = siteurl.DefaultOrigin
	}

	return &DomeggookParser{
		origin: origin,
		title: []strategy{
			metaContent("og:title"),
			text("title"),
		},
		image: []strategy{
			metaContent("og:image"),
			attr("#lThumbImg img", "src"),
		},
		price: []strategy{
			text(".price_now"),
			text(".product_price"),
			text(".price"),
		},
		description: []strategy{
			text("#tabPageDetail"),
		},
		categories: []listStrategy{
			breadcrumb("#lLocation li"),
			breadcrumb(".location li"),
		},
		details: []listStrategy{
			images("#tabPageDetail img"),
			images(".detail_content img"),
		},
		optionRows: "table.table_item_option tr",
		rules: []keywordRule{
			{fieldSupplier, []string{"공급사명", "supplier"}},
			{fieldOrigin, []string{"원산지", "origin"}},
			{fieldShippingMethod, []string{"배송방법", "shipping method"}},
			{fieldShippingFee, []string{"배송금액", "배송비", "shipping fee"}},
			{fieldQuantity, []string{"수량", "quantity"}},
		},
	}
}

// Extract never fails as a whole: a field whose strategies panic keeps its
// default and is reported in the returned slice.
func (p *DomeggookParser) Extract(page *SourcePage) (models.RawFields, []*ExtractionError) {
	raw := models.NewRawFields()
	var errs []*ExtractionError

	guard := func(field string, fn func()) {
		defer func() {
			if r := recover(); r != nil {
				errs = append(errs, &ExtractionError{Field: field, Cause: fmt.Sprint(r)})
			}
		}()
		fn()
	}

	doc := page.Doc

	guard("title", func() {
		raw.Title, _ = firstOf(doc, p.title)
	})
	guard("image_url", func() {
		img, _ := firstOf(doc, p.image)
		raw.ImageURL = siteurl.Absolute(img, p.origin, page.URL)
	})
	guard("price", func() {
		raw.Price, _ = firstOf(doc, p.price)
	})
	guard("description", func() {
		raw.Description, _ = firstOf(doc, p.description)
	})
	guard("category_levels", func() {
		levels, _ := firstListOf(doc, p.categories)
		var tiers [models.CategoryDepth]string
		copy(tiers[:], levels)
		raw.CategoryLevels = tiers
	})
	guard("detail_image_urls", func() {
		refs, _ := firstListOf(doc, p.details)
		var urls []string
		for _, ref := range refs {
			urls = append(urls, siteurl.Absolute(ref, p.origin, page.URL))
		}
		raw.DetailImageURLs = urls
	})
	guard("shipping", func() {
		p.scanTables(doc, &raw)
	})
	guard("options", func() {
		raw.Options = p.extractOptions(doc)
	})

	return raw, errs
}

// scanTables attributes two-cell rows to metadata fields by keyword. When
// several rows match the same field the last one wins.
func (p *DomeggookParser) scanTables(doc *goquery.Document, raw *models.RawFields) {
	found := *raw

	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() < 2 {
			return
		}

		key := collapse(cells.Eq(0).Text())
		value := collapse(cells.Eq(1).Text())
		lower := strings.ToLower(key)

		for _, rule := range p.rules {
			if !containsAny(lower, rule.keywords) {
				continue
			}
			switch rule.field {
			case fieldSupplier:
				found.Supplier = value
			case fieldOrigin:
				found.Origin = value
			case fieldShippingMethod:
				found.ShippingMethod = value
			case fieldShippingFee:
				found.ShippingFee = value
			case fieldQuantity:
				found.QuantityBasis = key
				found.QuantityPrice = value
			}
			return
		}
	})

	raw.Supplier = found.Supplier
	raw.Origin = found.Origin
	raw.ShippingMethod = found.ShippingMethod
	raw.ShippingFee = found.ShippingFee
	raw.QuantityBasis = found.QuantityBasis
	raw.QuantityPrice = found.QuantityPrice
}

func (p *DomeggookParser) extractOptions(doc *goquery.Document) []models.Option {
	var options []models.Option

	doc.Find(p.optionRows).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		options = append(options, models.Option{
			Name:  collapse(cells.Eq(0).Text()),
			Price: collapse(cells.Eq(1).Text()),
		})
	})

	return options
}

func firstOf(doc *goquery.Document, strategies []strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v, true
		}
	}
	return "", false
}

func firstListOf(doc *goquery.Document, strategies []listStrategy) ([]string, bool) {
	for _, s := range strategies {
		if v, ok := s(doc); ok {
			return v, true
		}
	}
	return nil, false
}

func metaContent(property string) strategy {
	return attr(fmt.Sprintf("meta[property='%s']", property), "content")
}

func attr(selector, name string) strategy {
	return func(doc *goquery.Document) (string, bool) {
		v, exists := doc.Find(selector).First().Attr(name)
		v = strings.TrimSpace(v)
		return v, exists && v != ""
	}
}

func text(selector string) strategy {
	return func(doc *goquery.Document) (string, bool) {
		v := collapse(doc.Find(selector).First().Text())
		return v, v != ""
	}
}

// breadcrumb returns the entries after the root by position. Blank entries
// keep their slot so an icon-only root is still the one dropped.
func breadcrumb(selector string) listStrategy {
	return func(doc *goquery.Document) ([]string, bool) {
		var levels []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			levels = append(levels, collapse(s.Text()))
		})
		if len(levels) == 0 {
			return nil, false
		}
		levels = levels[1:]
		for _, v := range levels {
			if v != "" {
				return levels, true
			}
		}
		return nil, false
	}
}

func images(selector string) listStrategy {
	return func(doc *goquery.Document) ([]string, bool) {
		var srcs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			if src := strings.TrimSpace(s.AttrOr("src", "")); src != "" {
				srcs = append(srcs, src)
			}
		})
		return srcs, len(srcs) > 0
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
