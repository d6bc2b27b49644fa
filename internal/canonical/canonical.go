// Package canonical converts raw supplier records into canonical products.
// Everything here is pure: no I/O, no clock, no randomness, so normalizing
// the same record twice is byte-identical.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gorm.io/datatypes"
	"supplier-catalog-service/internal/models"
)

// BusinessRules are the supplier-context defaults applied when a raw record
// omits a field. They are threaded through every call explicitly so the same
// code serves tenants with different rules concurrently.
type BusinessRules struct {
	MarginPercent   float64
	ShippingFee     float64
	DefaultUnit     models.Unit
	DefaultCategory string
}

// DefaultRules returns the stock business rules: 30% margin, flat 15.00
// shipping, unit count, general category.
func DefaultRules() BusinessRules {
	return BusinessRules{
		MarginPercent:   30,
		ShippingFee:     15,
		DefaultUnit:     models.UnitCount,
		DefaultCategory: "Geral",
	}
}

// ValidationError reports which canonical fields a record violated. The
// record is skipped and reported, never silently coerced.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("canonical validation failed: %s", strings.Join(e.Fields, ", "))
}

// ProductID derives the content-based identifier: the first 16 hex chars of
// SHA-256 over the stable source fields. Identical source records always
// yield the same id.
func ProductID(supplier, supplierProductID, name string) string {
	sum := sha256.Sum256([]byte(supplier + ":" + supplierProductID + ":" + name))
	return hex.EncodeToString(sum[:])[:16]
}

// FinalPrice applies the price law: base marked up by marginPercent plus
// shipping, rounded half-up to currency precision.
func FinalPrice(base, marginPercent, shipping float64) float64 {
	return RoundCurrency(base*(1+marginPercent/100) + shipping)
}

// RoundCurrency rounds to 2 decimals, half away from zero (half-up for the
// non-negative amounts used here).
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// ContentHash returns the SHA-256 hex digest of the canonical JSON encoding
// of v. Map keys are sorted by encoding/json, so the digest is stable.
func ContentHash(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Normalize converts one raw supplier record into a canonical product.
// Missing optional fields take business-rule defaults; missing required
// fields or out-of-range values yield a *ValidationError listing every
// violated field. Emitting the trail entry is the caller's responsibility,
// so failed transformations still get logged.
func Normalize(raw models.RawRecord, supplier string, rules BusinessRules) (*models.CanonicalProduct, error) {
	var violated []string

	if supplier == "" {
		violated = append(violated, "supplier")
	}
	if raw.SupplierProductID == "" {
		violated = append(violated, "supplier_product_id")
	}
	if raw.Name == "" {
		violated = append(violated, "name")
	}

	unit := models.Unit(raw.Unit)
	if raw.Unit == "" {
		unit = rules.DefaultUnit
	}
	if !unit.Valid() {
		violated = append(violated, "unit")
	}

	category := raw.Category
	if category == "" {
		category = rules.DefaultCategory
	}

	var weight float64
	if raw.Weight != nil {
		weight = *raw.Weight
	}
	if weight < 0 {
		violated = append(violated, "weight")
	}

	var base float64
	if raw.Price != nil {
		base = *raw.Price
	}
	if base < 0 {
		violated = append(violated, "price.base")
	}
	if rules.MarginPercent < 0 {
		violated = append(violated, "price.margin_percent")
	}
	if rules.ShippingFee < 0 {
		violated = append(violated, "price.shipping")
	}

	available := true
	if raw.StockAvailable != nil {
		available = *raw.StockAvailable
	}
	if raw.StockQuantity != nil && *raw.StockQuantity < 0 {
		violated = append(violated, "stock.quantity")
	}

	if len(violated) > 0 {
		return nil, &ValidationError{Fields: violated}
	}

	final := FinalPrice(base, rules.MarginPercent, rules.ShippingFee)

	p := &models.CanonicalProduct{
		ID:                ProductID(supplier, raw.SupplierProductID, raw.Name),
		Supplier:          supplier,
		SupplierProductID: raw.SupplierProductID,
		Name:              raw.Name,
		Brand:             raw.Brand,
		Category:          category,
		Weight:            weight,
		Unit:              unit,
		Price: models.Price{
			Base:          base,
			MarginPercent: rules.MarginPercent,
			Shipping:      rules.ShippingFee,
			Final:         &final,
		},
		Stock: models.Stock{
			Available: available,
			Quantity:  raw.StockQuantity,
		},
		Metadata: models.SourceMetadata{
			SourceURL:   raw.SourceURL,
			ExtractedAt: raw.ExtractedAt,
			ContentHash: raw.ContentHash,
		},
	}
	if len(raw.Attributes) > 0 {
		p.Attributes = datatypes.JSONMap(raw.Attributes)
	}
	return p, nil
}
