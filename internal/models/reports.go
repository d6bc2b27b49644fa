package models

// RecordFailure describes one record that could not make it through the
// pipeline. Per-record failures never abort a batch.
type RecordFailure struct {
	SupplierProductID string    `json:"supplierProductId"`
	EntityID          string    `json:"entityId,omitempty"`
	Stage             Operation `json:"stage"`
	Reason            string    `json:"reason"`
	Fields            []string  `json:"fields,omitempty"`
}

// IntegrationReport summarizes one catalog integration call.
type IntegrationReport struct {
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Skipped  int             `json:"skipped"`
	Failures []RecordFailure `json:"failures,omitempty"`
}

// BatchReport is returned by a full pipeline run over one supplier batch.
// Batch-level operations never reduce to a bare boolean: successes, skips
// and fatal aborts are all enumerated.
type BatchReport struct {
	RunID       string          `json:"runId"`
	Supplier    string          `json:"supplier"`
	Total       int             `json:"total"`
	Inserted    int             `json:"inserted"`
	Updated     int             `json:"updated"`
	Skipped     int             `json:"skipped"`
	Failures    []RecordFailure `json:"failures,omitempty"`
	Aborted     bool            `json:"aborted"`
	AbortReason string          `json:"abortReason,omitempty"`
}

// PriceRange summarizes final prices across the active catalog. Avg skips
// products with no computed final price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// CatalogStatistics is the aggregate view over non-tombstoned products.
type CatalogStatistics struct {
	TotalProducts    int            `json:"totalProducts"`
	CountsBySupplier map[string]int `json:"countsBySupplier"`
	Categories       []string       `json:"categories"`
	PriceRange       PriceRange     `json:"priceRange"`
}

// RemovedProduct identifies one tombstoned duplicate and the row it was
// collapsed into.
type RemovedProduct struct {
	ID       string `json:"id"`
	Supplier string `json:"supplier"`
	WinnerID string `json:"winnerId"`
}

// DedupReport summarizes a duplicate-collapse pass over one tenant's catalog.
type DedupReport struct {
	Collapsed int              `json:"collapsed"`
	Removed   []RemovedProduct `json:"removed,omitempty"`
}
