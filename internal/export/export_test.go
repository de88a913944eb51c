package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNames(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "학교장터_상품등록_20240305_140709.xlsx", WorkbookName(ts))
	assert.Equal(t, "상품이미지_20240305_140709.zip", BundleName(ts))
}

func TestWriteWorkbook(t *testing.T) {
	records := []models.ProductRecord{
		{Name: "책상", Price: "50,000원", OptionName: "화이트", ShippingFee: "3,000원", Supplier: "한빛가구", SourceURL: "https://domeggook.com/1"},
		{Name: "의자", Price: "가격문의", ShippingFee: "N/A"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Columns, rows[0])

	assert.Equal(t, "책상", rows[1][0])
	assert.Equal(t, "50000", rows[1][5])
	assert.Equal(t, "화이트", rows[1][6])
	assert.Equal(t, "3000", rows[1][14])
	assert.Equal(t, "https://domeggook.com/1", rows[1][22])

	assert.Equal(t, "가격문의", rows[2][5])
	assert.Equal(t, "N/A", rows[2][14])
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteImageBundle(t *testing.T) {
	assets := []models.AssetRef{
		{Filename: "책상_main.jpg", Role: models.RoleMain, Data: []byte("main")},
		{Filename: "책상_detail_1.jpg", Role: models.RoleDetail, Err: errors.New("unexpected status 404")},
		{Filename: "책상_detail_2.jpg", Role: models.RoleDetail, Data: []byte("detail")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteImageBundle(&buf, assets))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := map[string]string{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[zf.Name] = string(data)
	}

	assert.Equal(t, map[string]string{
		"images/책상_main.jpg":     "main",
		"images/책상_detail_2.jpg": "detail",
	}, contents)
}
