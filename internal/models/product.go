package models

import (
	"regexp"
	"strconv"
	"strings"
)

// NotAvailable is the default for key/value table fields the page did not expose.
const NotAvailable = "N/A"

// CategoryDepth is the number of category tiers the destination template carries.
const CategoryDepth = 3

type Option struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// RawFields holds everything the extractor found on one page. Every field is
// always present; absence is expressed through the documented default.
type RawFields struct {
	Title           string                `json:"title"`
	Price           string                `json:"price"`
	ImageURL        string                `json:"image_url"`
	Description     string                `json:"description"`
	CategoryLevels  [CategoryDepth]string `json:"category_levels"`
	DetailImageURLs []string              `json:"detail_image_urls"`
	Options         []Option              `json:"options"`
	Supplier        string                `json:"supplier"`
	Origin          string                `json:"origin"`
	ShippingMethod  string                `json:"shipping_method"`
	ShippingFee     string                `json:"shipping_fee"`
	QuantityBasis   string                `json:"quantity_basis"`
	QuantityPrice   string                `json:"quantity_price"`
}

// NewRawFields returns RawFields populated with every default.
func NewRawFields() RawFields {
	return RawFields{
		Supplier:       NotAvailable,
		Origin:         NotAvailable,
		ShippingMethod: NotAvailable,
		ShippingFee:    NotAvailable,
		QuantityBasis:  NotAvailable,
		QuantityPrice:  NotAvailable,
	}
}

// ProductRecord is one row of the procurement upload template.
type ProductRecord struct {
	Name           string `json:"name"`
	Category1      string `json:"category1"`
	Category2      string `json:"category2"`
	Category3      string `json:"category3"`
	Spec           string `json:"spec"`
	Price          string `json:"price"`
	OptionName     string `json:"option_name"`
	OptionPrice    string `json:"option_price"`
	Description    string `json:"description"`
	MainImage      string `json:"main_image"`
	DetailImages   string `json:"detail_images"`
	Supplier       string `json:"supplier"`
	Origin         string `json:"origin"`
	ShippingMethod string `json:"shipping_method"`
	ShippingFee    string `json:"shipping_fee"`
	QuantityBasis  string `json:"quantity_basis"`
	QuantityPrice  string `json:"quantity_price"`
	DeliveryRegion string `json:"delivery_region"`
	ModelName      string `json:"model_name"`
	Manufacturer   string `json:"manufacturer"`
	Stock          string `json:"stock"`
	Remarks        string `json:"remarks"`
	SourceURL      string `json:"source_url"`
}

// Columns is the destination header row, in the order Row emits values.
var Columns = []string{
	"상품명",
	"카테고리1",
	"카테고리2",
	"카테고리3",
	"규격",
	"단가",
	"옵션명",
	"옵션가격",
	"상세설명",
	"대표이미지",
	"상세이미지",
	"공급사명",
	"원산지",
	"배송방법",
	"배송금액",
	"수량기준",
	"수량단가",
	"납품가능지역",
	"모델명",
	"제조사",
	"재고수량",
	"비고",
	"상품URL",
}

// Row returns the record's values aligned with Columns.
func (r *ProductRecord) Row() []string {
	return []string{
		r.Name,
		r.Category1,
		r.Category2,
		r.Category3,
		r.Spec,
		r.Price,
		r.OptionName,
		r.OptionPrice,
		r.Description,
		r.MainImage,
		r.DetailImages,
		r.Supplier,
		r.Origin,
		r.ShippingMethod,
		r.ShippingFee,
		r.QuantityBasis,
		r.QuantityPrice,
		r.DeliveryRegion,
		r.ModelName,
		r.Manufacturer,
		r.Stock,
		r.Remarks,
		r.SourceURL,
	}
}

var amountPattern = regexp.MustCompile(`\d[\d,]*`)

// ParseAmount pulls the first integer amount out of a price label such as
// "12,300원". ok is false when the label carries no digits.
func ParseAmount(s string) (int64, bool) {
	match := amountPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
