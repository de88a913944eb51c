// Package export writes a finished batch as the destination upload workbook
// and a zip of the downloaded images.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/maltedev/catalog-scraper/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "상품목록"
	imageFolder = "images/"
	stampLayout = "20060102_150405"
)

// Columns written as numbers when the label is a plain amount.
var numericColumns = map[int]bool{
	5:  true, // 단가
	14: true, // 배송금액
}

var plainAmount = regexp.MustCompile(`^\s*\d[\d,]*\s*원?\s*$`)

func WorkbookName(t time.Time) string {
	return fmt.Sprintf("학교장터_상품등록_%s.xlsx", t.Format(stampLayout))
}

func BundleName(t time.Time) string {
	return fmt.Sprintf("상품이미지_%s.zip", t.Format(stampLayout))
}

// WriteWorkbook writes the header row followed by one row per record.
func WriteWorkbook(w io.Writer, records []models.ProductRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(models.Columns))
	for i, c := range models.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(&records[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func rowValues(r *models.ProductRecord) []interface{} {
	row := r.Row()
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
		if numericColumns[i] && plainAmount.MatchString(v) {
			if n, ok := models.ParseAmount(v); ok {
				values[i] = n
			}
		}
	}
	return values
}

// WriteImageBundle zips every successfully downloaded asset under images/.
// Failed refs are left out.
func WriteImageBundle(w io.Writer, assets []models.AssetRef) error {
	zw := zip.NewWriter(w)

	for i := range assets {
		a := &assets[i]
		if !a.OK() || len(a.Data) == 0 {
			continue
		}
		fw, err := zw.Create(imageFolder + a.Filename)
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to add %s: %w", a.Filename, err)
		}
		if _, err := fw.Write(a.Data); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write %s: %w", a.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	return nil
}
