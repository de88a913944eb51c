// Package normalize maps extracted page fields onto the procurement upload
// template and plans the image downloads that go with each product.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/maltedev/catalog-scraper/internal/models"
)

const (
	imageExt        = ".jpg"
	detailSeparator = ";"
)

// MissingRequiredFieldError marks a product that cannot be emitted. It is a
// skip, not a failure of the batch.
type MissingRequiredFieldError struct {
	Fields []string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the fields every emitted record must carry.
func Validate(raw models.RawFields) error {
	var missing []string
	if strings.TrimSpace(raw.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(raw.Price) == "" {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(raw.ImageURL) == "" {
		missing = append(missing, "image_url")
	}
	if len(missing) > 0 {
		return &MissingRequiredFieldError{Fields: missing}
	}
	return nil
}

// Stem turns a product title into a filesystem-safe filename stem.
func Stem(title string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
}

func MainImageName(stem string) string {
	return stem + "_main" + imageExt
}

func DetailImageName(stem string, index int) string {
	return fmt.Sprintf("%s_detail_%d%s", stem, index, imageExt)
}

// Normalize is NormalizeWithStem using the title-derived stem.
func Normalize(url string, raw models.RawFields) ([]models.ProductRecord, []models.AssetRequest, error) {
	return NormalizeWithStem(url, raw, Stem(raw.Title))
}

// NormalizeWithStem produces one record per option (or exactly one when the
// product has none) and the download plan for the product's images. The
// result depends only on its arguments.
func NormalizeWithStem(url string, raw models.RawFields, stem string) ([]models.ProductRecord, []models.AssetRequest, error) {
	if err := Validate(raw); err != nil {
		return nil, nil, err
	}

	plan := []models.AssetRequest{{
		URL:      raw.ImageURL,
		Filename: MainImageName(stem),
		Role:     models.RoleMain,
	}}

	detailNames := make([]string, 0, len(raw.DetailImageURLs))
	for i, u := range raw.DetailImageURLs {
		name := DetailImageName(stem, i+1)
		detailNames = append(detailNames, name)
		plan = append(plan, models.AssetRequest{URL: u, Filename: name, Role: models.RoleDetail})
	}

	base := models.ProductRecord{
		Name:           strings.TrimSpace(raw.Title),
		Category1:      raw.CategoryLevels[0],
		Category2:      raw.CategoryLevels[1],
		Category3:      raw.CategoryLevels[2],
		Price:          strings.TrimSpace(raw.Price),
		Description:    raw.Description,
		MainImage:      MainImageName(stem),
		DetailImages:   strings.Join(detailNames, detailSeparator),
		Supplier:       raw.Supplier,
		Origin:         raw.Origin,
		ShippingMethod: raw.ShippingMethod,
		ShippingFee:    raw.ShippingFee,
		QuantityBasis:  raw.QuantityBasis,
		QuantityPrice:  raw.QuantityPrice,
		SourceURL:      url,
	}

	if len(raw.Options) == 0 {
		return []models.ProductRecord{base}, plan, nil
	}

	records := make([]models.ProductRecord, 0, len(raw.Options))
	for _, opt := range raw.Options {
		r := base
		r.OptionName = opt.Name
		r.OptionPrice = opt.Price
		records = append(records, r)
	}
	return records, plan, nil
}
