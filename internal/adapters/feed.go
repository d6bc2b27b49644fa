// Package adapters parses structured supplier feeds (JSON, CSV, XLSX) into
// raw records for the pipeline. Supplier-specific page scraping lives
// outside this service; adapters only consume already-exported feeds.
package adapters

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"supplier-catalog-service/internal/canonical"
	"supplier-catalog-service/internal/models"
)

// FeedColumns is the column contract for tabular feeds, in order. Only
// supplier_product_id and name are required.
var FeedColumns = []struct {
	Name     string
	Required bool
}{
	{"supplier_product_id", true},
	{"name", true},
	{"brand", false},
	{"category", false},
	{"weight", false},
	{"unit", false},
	{"price", false},
	{"stock_available", false},
	{"stock_quantity", false},
	{"source_url", false},
}

// jsonFeed mirrors the export shape of supplier feed files: either a bare
// array or an object with a "products" array.
type jsonFeed struct {
	Products []models.RawRecord `json:"products"`
}

// ParseJSON decodes a JSON feed into raw records.
func ParseJSON(r io.Reader, sourceURL string, extractedAt time.Time) ([]models.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	var records []models.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var feed jsonFeed
		if err := json.Unmarshal(data, &feed); err != nil {
			return nil, fmt.Errorf("failed to decode JSON feed: %w", err)
		}
		records = feed.Products
	}
	for i := range records {
		stamp(&records[i], sourceURL, extractedAt)
	}
	return records, nil
}

// ParseCSV decodes a header-first CSV feed into raw records.
func ParseCSV(r io.Reader, sourceURL string, extractedAt time.Time) ([]models.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := columnIndex(header)

	var records []models.RawRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}
		rec, err := rowToRecord(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		stamp(&rec, sourceURL, extractedAt)
		records = append(records, rec)
	}
	return records, nil
}

// ParseXLSX decodes the first sheet of an Excel feed into raw records.
func ParseXLSX(r io.Reader, sourceURL string, extractedAt time.Time) ([]models.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX feed: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX feed has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("XLSX feed is empty")
	}

	cols := columnIndex(rows[0])
	var records []models.RawRecord
	for i, row := range rows[1:] {
		if empty(row) {
			continue
		}
		rec, err := rowToRecord(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		stamp(&rec, sourceURL, extractedAt)
		records = append(records, rec)
	}
	return records, nil
}

// WriteCSVTemplate writes the feed column contract as a one-line CSV header.
func WriteCSVTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)
	headers := make([]string, len(FeedColumns))
	for i, col := range FeedColumns {
		headers[i] = col.Name
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV template: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// WriteTemplate writes an XLSX import template with the feed column
// contract on the first row, required columns marked.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Products"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	for i, col := range FeedColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		name := col.Name
		if col.Required {
			name += " *"
		}
		f.SetCellValue(sheet, cell, name)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	return f.Write(w)
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(h), "*")))
		cols[key] = i
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func rowToRecord(row []string, cols map[string]int) (models.RawRecord, error) {
	rec := models.RawRecord{
		SupplierProductID: cell(row, cols, "supplier_product_id"),
		Name:              cell(row, cols, "name"),
		Brand:             cell(row, cols, "brand"),
		Category:          cell(row, cols, "category"),
		Unit:              cell(row, cols, "unit"),
	}

	if v := cell(row, cols, "weight"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid weight %q", v)
		}
		rec.Weight = &w
	}
	if v := cell(row, cols, "price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid price %q", v)
		}
		rec.Price = &p
	}
	if v := cell(row, cols, "stock_available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return rec, fmt.Errorf("invalid stock_available %q", v)
		}
		rec.StockAvailable = &b
	}
	if v := cell(row, cols, "stock_quantity"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return rec, fmt.Errorf("invalid stock_quantity %q", v)
		}
		rec.StockQuantity = &q
	}
	if v := cell(row, cols, "source_url"); v != "" {
		rec.SourceURL = v
	}
	return rec, nil
}

// stamp fills in extraction metadata. The content hash covers the
// supplier-native fields so re-extraction of unchanged data hashes the same.
func stamp(rec *models.RawRecord, sourceURL string, extractedAt time.Time) {
	if rec.SourceURL == "" {
		rec.SourceURL = sourceURL
	}
	if rec.ExtractedAt.IsZero() {
		rec.ExtractedAt = extractedAt
	}
	if rec.ContentHash == "" {
		hashed := *rec
		hashed.ContentHash = ""
		hashed.ExtractedAt = time.Time{}
		rec.ContentHash = canonical.ContentHash(hashed)
	}
}

func empty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
