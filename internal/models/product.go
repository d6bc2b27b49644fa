package models

import (
	"time"

	"gorm.io/datatypes"
)

// Unit is the closed set of measurement units a canonical product may carry.
type Unit string

const (
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitCount      Unit = "un"
)

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitLiter, UnitMilliliter, UnitCount:
		return true
	}
	return false
}

// Price carries the pricing breakdown of a canonical product. Final is
// always recomputed from Base, MarginPercent and Shipping; it is never
// set independently of them.
type Price struct {
	Base          float64  `json:"base"`
	MarginPercent float64  `json:"marginPercent" gorm:"column:margin_percent"`
	Shipping      float64  `json:"shipping"`
	Final         *float64 `json:"final"`
}

// Stock carries availability information for a canonical product.
type Stock struct {
	Available bool `json:"available"`
	Quantity  *int `json:"quantity,omitempty"`
}

// SourceMetadata is preserved verbatim from the extraction stage.
type SourceMetadata struct {
	SourceURL   string    `json:"sourceUrl"`
	ExtractedAt time.Time `json:"extractedAt"`
	ContentHash string    `json:"contentHash" gorm:"size:64"`
}

// CanonicalProduct is the normalized representation of a supplier product.
// Its ID is content-derived, so re-processing the same source record always
// lands on the same row (idempotent integration).
// Composite indexes on tenant_id keep multi-tenant queries on the fast path.
type CanonicalProduct struct {
	ID                string            `json:"id" gorm:"primaryKey;size:16"`
	TenantID          string            `json:"tenantId" gorm:"primaryKey;index:idx_products_tenant_supplier;index:idx_products_tenant_category"`
	Supplier          string            `json:"supplier" gorm:"not null;index:idx_products_tenant_supplier"`
	SupplierProductID string            `json:"supplierProductId" gorm:"not null"`
	Name              string            `json:"name" gorm:"not null"`
	Brand             string            `json:"brand"`
	Category          string            `json:"category" gorm:"index:idx_products_tenant_category"`
	Weight            float64           `json:"weight"`
	Unit              Unit              `json:"unit" gorm:"size:8"`
	Price             Price             `json:"price" gorm:"embedded;embeddedPrefix:price_"`
	Stock             Stock             `json:"stock" gorm:"embedded;embeddedPrefix:stock_"`
	Metadata          SourceMetadata    `json:"metadata" gorm:"embedded;embeddedPrefix:source_"`
	Attributes        datatypes.JSONMap `json:"attributes,omitempty" gorm:"type:jsonb"`
	IntegratedAt      time.Time         `json:"integratedAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	DeletedAt         *time.Time        `json:"deletedAt,omitempty" gorm:"index"`
}

// Tombstoned reports whether the product has been logically deleted.
// Tombstoned rows stay in storage for audit continuity but are excluded
// from catalog queries.
func (p *CanonicalProduct) Tombstoned() bool {
	return p.DeletedAt != nil
}

// RawRecord is one supplier-native product as produced by an extraction
// adapter. Fields are loosely typed; absent values stay nil and are filled
// in by business-rule defaults during normalization. A RawRecord is consumed
// once by the canonicalizer and never mutated afterward.
type RawRecord struct {
	SupplierProductID string                 `json:"supplierProductId"`
	Name              string                 `json:"name"`
	Brand             string                 `json:"brand,omitempty"`
	Category          string                 `json:"category,omitempty"`
	Weight            *float64               `json:"weight,omitempty"`
	Unit              string                 `json:"unit,omitempty"`
	Price             *float64               `json:"price,omitempty"`
	StockAvailable    *bool                  `json:"stockAvailable,omitempty"`
	StockQuantity     *int                   `json:"stockQuantity,omitempty"`
	Attributes        map[string]interface{} `json:"attributes,omitempty"`
	SourceURL         string                 `json:"sourceUrl,omitempty"`
	ExtractedAt       time.Time              `json:"extractedAt"`
	ContentHash       string                 `json:"contentHash,omitempty"`
}

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     Error  `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// TableName returns the table name for the CanonicalProduct model
func (CanonicalProduct) TableName() string {
	return "canonical_products"
}
