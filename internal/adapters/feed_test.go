package adapters

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var extractedAt = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

const feedURL = "https://gramore.example/feed"

func TestParseJSONBareArray(t *testing.T) {
	feed := `[
		{"supplierProductId": "SKU-1", "name": "Cashew", "price": 24.90, "stockAvailable": true},
		{"supplierProductId": "SKU-2", "name": "Almond", "category": "Nuts"}
	]`

	records, err := ParseJSON(strings.NewReader(feed), feedURL, extractedAt)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "SKU-1", records[0].SupplierProductID)
	assert.Equal(t, "Cashew", records[0].Name)
	require.NotNil(t, records[0].Price)
	assert.Equal(t, 24.90, *records[0].Price)
	assert.Equal(t, feedURL, records[0].SourceURL)
	assert.Equal(t, extractedAt, records[0].ExtractedAt)
	assert.NotEmpty(t, records[0].ContentHash)
}

func TestParseJSONProductsEnvelope(t *testing.T) {
	feed := `{"products": [{"supplierProductId": "E-1", "name": "Honey"}]}`

	records, err := ParseJSON(strings.NewReader(feed), feedURL, extractedAt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "E-1", records[0].SupplierProductID)
}

func TestParseJSONRejectsMalformedFeed(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"products": 12}`), feedURL, extractedAt)
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	feed := strings.Join([]string{
		"supplier_product_id,name,brand,category,weight,unit,price,stock_available,stock_quantity,source_url",
		"SKU-1,Cashew 500g,NutriNuts,Nuts,0.5,kg,24.90,true,120,https://gramore.example/p/sku-1",
		"SKU-2,Almond,,Nuts,,,,,,",
	}, "\n")

	records, err := ParseCSV(strings.NewReader(feed), feedURL, extractedAt)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "SKU-1", first.SupplierProductID)
	assert.Equal(t, "NutriNuts", first.Brand)
	require.NotNil(t, first.Weight)
	assert.Equal(t, 0.5, *first.Weight)
	assert.Equal(t, "kg", first.Unit)
	require.NotNil(t, first.StockQuantity)
	assert.Equal(t, 120, *first.StockQuantity)
	// A row-level source_url wins over the feed's.
	assert.Equal(t, "https://gramore.example/p/sku-1", first.SourceURL)

	second := records[1]
	assert.Nil(t, second.Price)
	assert.Nil(t, second.StockAvailable)
	assert.Equal(t, feedURL, second.SourceURL)
}

func TestParseCSVRejectsBadNumbers(t *testing.T) {
	feed := "supplier_product_id,name,price\nSKU-1,Cashew,abc"
	_, err := ParseCSV(strings.NewReader(feed), feedURL, extractedAt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestContentHashStableAcrossReExtraction(t *testing.T) {
	feed := "supplier_product_id,name,price\nSKU-1,Cashew,24.90"

	first, err := ParseCSV(strings.NewReader(feed), feedURL, extractedAt)
	require.NoError(t, err)
	second, err := ParseCSV(strings.NewReader(feed), feedURL, extractedAt.Add(48*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first[0].ContentHash, second[0].ContentHash)

	changed, err := ParseCSV(strings.NewReader("supplier_product_id,name,price\nSKU-1,Cashew,25.90"), feedURL, extractedAt)
	require.NoError(t, err)
	assert.NotEqual(t, first[0].ContentHash, changed[0].ContentHash)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection closed") }

func TestWriteCSVTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSVTemplate(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "supplier_product_id,name,brand"))

	// Write failures surface instead of being swallowed.
	assert.Error(t, WriteCSVTemplate(failingWriter{}))
}

func TestTemplateRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	// A template with no data rows parses to an empty feed.
	records, err := ParseXLSX(bytes.NewReader(buf.Bytes()), feedURL, extractedAt)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Fill the template the way a supplier would and feed it back.
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	sheet := f.GetSheetList()[0]
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"SKU-1", "Cashew 500g", "NutriNuts", "Nuts", 0.5, "kg", 24.90, true, 120}))
	var filled bytes.Buffer
	require.NoError(t, f.Write(&filled))
	require.NoError(t, f.Close())

	records, err = ParseXLSX(bytes.NewReader(filled.Bytes()), feedURL, extractedAt)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SKU-1", records[0].SupplierProductID)
	assert.Equal(t, "Cashew 500g", records[0].Name)
	require.NotNil(t, records[0].Price)
	assert.Equal(t, 24.90, *records[0].Price)
	require.NotNil(t, records[0].StockAvailable)
	assert.True(t, *records[0].StockAvailable)
}

func TestParseXLSXSkipsEmptyRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"supplier_product_id", "name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"SKU-1", "Cashew"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"SKU-2", "Almond"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	records, err := ParseXLSX(bytes.NewReader(buf.Bytes()), feedURL, extractedAt)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SKU-2", records[1].SupplierProductID)
}
