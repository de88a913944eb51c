package parser

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
	<title>도매꾹 - 접이식 책상</title>
	<meta property="og:title" content="접이식 학생 책상 1200">
	<meta property="og:image" content="//cdn.domeggook.com/upload/item/main.jpg">
</head>
<body>
	<ul id="lLocation">
		<li>홈</li>
		<li>가구</li>
		<li>학생가구</li>
		<li>책상</li>
		<li>접이식</li>
	</ul>
	<div class="lItemPrice">
		<span class="price_now"> 50,000원 </span>
		<span class="price">99,999원</span>
	</div>
	<table class="lInfoTbl">
		<tr><th>공급사명</th><td>한빛가구</td></tr>
		<tr><th>원산지</th><td>국산</td></tr>
		<tr><th>배송방법</th><td>택배</td></tr>
		<tr><th>배송금액</th><td>3,000원</td></tr>
		<tr><th>수량별 단가</th><td>10개 이상 48,000원</td></tr>
	</table>
	<table class="table_item_option">
		<tr><th>옵션</th><th>가격</th></tr>
		<tr><td>화이트</td><td>+0원</td></tr>
		<tr><td>월넛</td><td>+2,000원</td></tr>
	</table>
	<div id="tabPageDetail">
		<p>튼튼한   철제 프레임
		</p>
		<img src="/upload/detail/1.jpg">
		<img src="//cdn.domeggook.com/detail/2.jpg">
		<img src="">
	</div>
</body>
</html>`

const fallbackPage = `<!DOCTYPE html>
<html>
<head><title>의자 세트</title></head>
<body>
	<ul class="location"><li>HOME</li><li>가구</li></ul>
	<div id="lThumbImg"><img src="/upload/item/chair.jpg"></div>
	<span class="product_price">12,000원</span>
	<div class="detail_content"><img src="https://img.example.com/chair_1.jpg"></div>
</body>
</html>`

func mustParse(t *testing.T, url, html string) *SourcePage {
	t.Helper()
	page, err := Parse(url, html)
	require.NoError(t, err)
	return page
}

func TestExtractFullProductPage(t *testing.T) {
	p := NewDomeggookParser("https://domeggook.com")

	raw, errs := p.Extract(mustParse(t, "https://domeggook.com/12345", productPage))
	require.Empty(t, errs)

	assert.Equal(t, "접이식 학생 책상 1200", raw.Title)
	assert.Equal(t, "https://cdn.domeggook.com/upload/item/main.jpg", raw.ImageURL)
	assert.Equal(t, "50,000원", raw.Price)
	assert.Equal(t, "튼튼한 철제 프레임", raw.Description)
	assert.Equal(t, [3]string{"가구", "학생가구", "책상"}, raw.CategoryLevels)
	assert.Equal(t, []string{
		"https://domeggook.com/upload/detail/1.jpg",
		"https://cdn.domeggook.com/detail/2.jpg",
	}, raw.DetailImageURLs)

	assert.Equal(t, "한빛가구", raw.Supplier)
	assert.Equal(t, "국산", raw.Origin)
	assert.Equal(t, "택배", raw.ShippingMethod)
	assert.Equal(t, "3,000원", raw.ShippingFee)
	assert.Equal(t, "수량별 단가", raw.QuantityBasis)
	assert.Equal(t, "10개 이상 48,000원", raw.QuantityPrice)

	assert.Equal(t, []models.Option{
		{Name: "화이트", Price: "+0원"},
		{Name: "월넛", Price: "+2,000원"},
	}, raw.Options)
}

func TestExtractFallbacks(t *testing.T) {
	p := NewDomeggookParser("https://domeggook.com")

	raw, errs := p.Extract(mustParse(t, "https://domeggook.com/777", fallbackPage))
	require.Empty(t, errs)

	assert.Equal(t, "의자 세트", raw.Title)
	assert.Equal(t, "https://domeggook.com/upload/item/chair.jpg", raw.ImageURL)
	assert.Equal(t, "12,000원", raw.Price)
	assert.Equal(t, [3]string{"가구", "", ""}, raw.CategoryLevels)
	assert.Equal(t, []string{"https://img.example.com/chair_1.jpg"}, raw.DetailImageURLs)
	assert.Empty(t, raw.Description)
	assert.Equal(t, models.NotAvailable, raw.Supplier)
	assert.Equal(t, models.NotAvailable, raw.ShippingFee)
	assert.Nil(t, raw.Options)
}

func TestTitlePrefersStructuredMetadata(t *testing.T) {
	p := NewDomeggookParser("")

	both := `<html><head><title>문서 제목</title><meta property="og:title" content="메타 제목"></head></html>`
	onlyTitle := `<html><head><title>문서 제목</title></head></html>`
	blankMeta := `<html><head><title>문서 제목</title><meta property="og:title" content="   "></head></html>`

	raw, _ := p.Extract(mustParse(t, "", both))
	assert.Equal(t, "메타 제목", raw.Title)

	raw, _ = p.Extract(mustParse(t, "", onlyTitle))
	assert.Equal(t, "문서 제목", raw.Title)

	raw, _ = p.Extract(mustParse(t, "", blankMeta))
	assert.Equal(t, "문서 제목", raw.Title)
}

func TestPriceSelectorOrder(t *testing.T) {
	p := NewDomeggookParser("")

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{"current price wins", `<span class="price">3</span><span class="product_price">2</span><span class="price_now">1</span>`, "1"},
		{"product price before generic", `<span class="price">3</span><span class="product_price">2</span>`, "2"},
		{"generic price", `<span class="price">3</span>`, "3"},
		{"empty current falls through", `<span class="price_now">  </span><span class="price">3</span>`, "3"},
		{"no price", `<div>문의</div>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := p.Extract(mustParse(t, "", tt.html))
			assert.Equal(t, tt.expected, raw.Price)
		})
	}
}

func TestMissingPrimaryImage(t *testing.T) {
	p := NewDomeggookParser("")

	raw, errs := p.Extract(mustParse(t, "", `<html><head><meta property="og:title" content="상품"></head><body><div id="lThumbImg"></div></body></html>`))
	assert.Empty(t, errs)
	assert.Empty(t, raw.ImageURL)
}

func TestCategoryTruncation(t *testing.T) {
	p := NewDomeggookParser("")

	html := `<ul id="lLocation"><li>홈</li><li>A</li><li>B</li><li>C</li><li>D</li></ul>`
	raw, _ := p.Extract(mustParse(t, "", html))
	assert.Equal(t, [3]string{"A", "B", "C"}, raw.CategoryLevels)

	raw, _ = p.Extract(mustParse(t, "", `<ul id="lLocation"><li>홈</li></ul>`))
	assert.Equal(t, [3]string{}, raw.CategoryLevels)
}

func TestCategoryIconOnlyRoot(t *testing.T) {
	p := NewDomeggookParser("")

	html := `<ul id="lLocation"><li><a href="/"><img src="/home.png"></a></li><li>가구</li><li>학생가구</li><li>책상</li></ul>`
	raw, errs := p.Extract(mustParse(t, "", html))
	assert.Empty(t, errs)
	assert.Equal(t, [3]string{"가구", "학생가구", "책상"}, raw.CategoryLevels)

	html = `<ul id="lLocation"><li>홈</li><li></li><li>학생가구</li></ul>`
	raw, _ = p.Extract(mustParse(t, "", html))
	assert.Equal(t, [3]string{"", "학생가구", ""}, raw.CategoryLevels)
}

func TestTableScanLastMatchWins(t *testing.T) {
	p := NewDomeggookParser("")

	html := `<table>
		<tr><th>Supplier</th><td>First Co</td></tr>
		<tr><td>공급사명</td><td>두번째 상사</td></tr>
		<tr><td>single cell</td></tr>
		<tr><th>Shipping Fee</th><td>Free</td></tr>
	</table>`
	raw, _ := p.Extract(mustParse(t, "", html))

	assert.Equal(t, "두번째 상사", raw.Supplier)
	assert.Equal(t, "Free", raw.ShippingFee)
	assert.Equal(t, models.NotAvailable, raw.Origin)
}

func TestOptionRowsNeedTwoCells(t *testing.T) {
	p := NewDomeggookParser("")

	html := `<table class="table_item_option">
		<tr><td>단일</td></tr>
		<tr><td>S</td><td>1,000원</td><td>재고있음</td></tr>
	</table>`
	raw, _ := p.Extract(mustParse(t, "", html))

	assert.Equal(t, []models.Option{{Name: "S", Price: "1,000원"}}, raw.Options)
}

func TestPanickingStrategyDegradesField(t *testing.T) {
	p := NewDomeggookParser("")
	p.price = append([]strategy{func(*goquery.Document) (string, bool) {
		panic("unexpected markup")
	}}, p.price...)

	raw, errs := p.Extract(mustParse(t, "", fallbackPage))

	require.Len(t, errs, 1)
	assert.Equal(t, "price", errs[0].Field)
	assert.Contains(t, errs[0].Error(), "unexpected markup")
	assert.Empty(t, raw.Price)
	assert.Equal(t, "의자 세트", raw.Title)
}
