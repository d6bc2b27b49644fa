// Package catalog is the unification engine over the canonical product
// store: integration with dedup, multi-predicate search, cross-supplier
// price comparison and aggregate statistics.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"supplier-catalog-service/internal/canonical"
	"supplier-catalog-service/internal/compliance"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

// ErrNotFound is returned when a product does not exist or is tombstoned.
var ErrNotFound = errors.New("catalog: product not found")

// DuplicateError is informational: the colliding id was resolved by upsert
// semantics, nothing failed.
type DuplicateError struct {
	ID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("catalog: duplicate product id %s resolved by upsert", e.ID)
}

// SearchFilter holds the ANDed predicates of a catalog search. The text
// query matches case-insensitive substrings of name, brand and category.
type SearchFilter struct {
	Query    string   `json:"query,omitempty"`
	Category string   `json:"category,omitempty"`
	Supplier string   `json:"supplier,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
}

// Similarity decides whether a product matches a comparison query. The
// default is the same substring rule search uses; a fuzzier strategy can be
// swapped in without touching Compare.
type Similarity func(p *models.CanonicalProduct, query string) bool

func substringSimilarity(p *models.CanonicalProduct, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), strings.ToLower(query))
}

// Catalog coordinates all reads and writes of canonical products for every
// tenant partition. The trail logger is optional; when present, collapses
// performed by RemoveDuplicates are logged as deduplication entries.
type Catalog struct {
	store   storage.Catalog
	trail   *compliance.Logger
	similar Similarity
	log     *logrus.Entry
	clock   func() time.Time
}

func New(store storage.Catalog, trail *compliance.Logger, logger *logrus.Logger) *Catalog {
	return &Catalog{
		store:   store,
		trail:   trail,
		similar: substringSimilarity,
		log:     logger.WithField("component", "catalog"),
		clock:   time.Now,
	}
}

// Upsert integrates a single product. It reports whether the product was
// newly inserted; an existing non-tombstoned row with the same id is
// overwritten (identical id implies identical source content by
// construction). A tombstoned row is revived.
func (c *Catalog) Upsert(ctx context.Context, tenantID string, p *models.CanonicalProduct) (inserted bool, err error) {
	now := c.clock().UTC()
	existing, err := c.store.Get(ctx, tenantID, p.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		inserted = true
		p.IntegratedAt = now
	case err != nil:
		return false, err
	case existing.Tombstoned():
		inserted = true
		p.IntegratedAt = now
	default:
		p.IntegratedAt = existing.IntegratedAt
		c.log.WithField("tenant", tenantID).Debug((&DuplicateError{ID: p.ID}).Error())
	}
	p.TenantID = tenantID
	p.UpdatedAt = now
	p.DeletedAt = nil
	if err := c.store.Put(ctx, tenantID, p); err != nil {
		return false, err
	}
	return inserted, nil
}

// Integrate upserts a batch. Failures are isolated per record: a bad record
// is skipped and reported, only a storage fault aborts the batch.
func (c *Catalog) Integrate(ctx context.Context, tenantID string, products []*models.CanonicalProduct) (*models.IntegrationReport, error) {
	report := &models.IntegrationReport{}
	for _, p := range products {
		inserted, err := c.Upsert(ctx, tenantID, p)
		if err != nil {
			var fault *storage.Fault
			if errors.As(err, &fault) {
				return report, err
			}
			report.Skipped++
			report.Failures = append(report.Failures, models.RecordFailure{
				SupplierProductID: p.SupplierProductID,
				EntityID:          p.ID,
				Stage:             models.OpIntegration,
				Reason:            err.Error(),
			})
			continue
		}
		if inserted {
			report.Inserted++
		} else {
			report.Updated++
		}
	}
	c.log.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
	}).Info("catalog integration finished")
	return report, nil
}

// Get returns a product by id; tombstoned products read as not found.
func (c *Catalog) Get(ctx context.Context, tenantID, id string) (*models.CanonicalProduct, error) {
	p, err := c.store.Get(ctx, tenantID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Tombstoned() {
		return nil, ErrNotFound
	}
	return p, nil
}

// Search returns the non-tombstoned products matching every provided
// predicate, ordered by id for a deterministic result on a fixed store
// state. No predicates returns the full active set.
func (c *Catalog) Search(ctx context.Context, tenantID string, f SearchFilter) ([]models.CanonicalProduct, error) {
	all, err := c.store.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(f.Query)
	out := make([]models.CanonicalProduct, 0)
	for _, p := range all {
		if p.Tombstoned() {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Brand), query) &&
			!strings.Contains(strings.ToLower(p.Category), query) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Supplier != "" && p.Supplier != f.Supplier {
			continue
		}
		if f.MinPrice != nil && (p.Price.Final == nil || *p.Price.Final < *f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && (p.Price.Final == nil || *p.Price.Final > *f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Compare is the cross-supplier price-comparison primitive: every active
// product whose name matches under the similarity rule, cheapest first,
// ties broken by id. It never merges or deletes data.
func (c *Catalog) Compare(ctx context.Context, tenantID, productName string) ([]models.CanonicalProduct, error) {
	all, err := c.store.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]models.CanonicalProduct, 0)
	for i := range all {
		p := &all[i]
		if p.Tombstoned() || !c.similar(p, productName) {
			continue
		}
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Price.Final, out[j].Price.Final
		switch {
		case fi == nil && fj == nil:
			return out[i].ID < out[j].ID
		case fi == nil:
			return false
		case fj == nil:
			return true
		case *fi != *fj:
			return *fi < *fj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Statistics aggregates the active catalog. Products with no computed final
// price are excluded from the price range.
func (c *Catalog) Statistics(ctx context.Context, tenantID string) (*models.CatalogStatistics, error) {
	all, err := c.store.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &models.CatalogStatistics{CountsBySupplier: make(map[string]int)}
	categories := make(map[string]bool)
	var sum float64
	var priced int
	for _, p := range all {
		if p.Tombstoned() {
			continue
		}
		stats.TotalProducts++
		stats.CountsBySupplier[p.Supplier]++
		if p.Category != "" {
			categories[p.Category] = true
		}
		if p.Price.Final == nil {
			continue
		}
		f := *p.Price.Final
		if priced == 0 || f < stats.PriceRange.Min {
			stats.PriceRange.Min = f
		}
		if priced == 0 || f > stats.PriceRange.Max {
			stats.PriceRange.Max = f
		}
		sum += f
		priced++
	}
	if priced > 0 {
		stats.PriceRange.Avg = canonical.RoundCurrency(sum / float64(priced))
	}
	for cat := range categories {
		stats.Categories = append(stats.Categories, cat)
	}
	sort.Strings(stats.Categories)
	return stats, nil
}

// Remove tombstones a product. The row stays in storage so the compliance
// trail keeps pointing at real data.
func (c *Catalog) Remove(ctx context.Context, tenantID, id string) error {
	p, err := c.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	now := c.clock().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return c.store.Put(ctx, tenantID, p)
}

// RemoveDuplicates collapses records that share a (supplier,
// supplier_product_id) pair, true duplicates from re-extraction, keeping
// the most recently integrated one and tombstoning the rest. Each collapse
// is logged as a deduplication trail entry so the winner is traceable.
func (c *Catalog) RemoveDuplicates(ctx context.Context, tenantID string) (*models.DedupReport, error) {
	all, err := c.store.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]models.CanonicalProduct)
	for _, p := range all {
		if p.Tombstoned() {
			continue
		}
		key := p.Supplier + "\x00" + p.SupplierProductID
		groups[key] = append(groups[key], p)
	}

	report := &models.DedupReport{}
	now := c.clock().UTC()
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		winner := group[0]
		for _, p := range group[1:] {
			if p.UpdatedAt.After(winner.UpdatedAt) {
				winner = p
			}
		}
		for _, p := range group {
			if p.ID == winner.ID {
				continue
			}
			loser := p
			loser.DeletedAt = &now
			loser.UpdatedAt = now
			if err := c.store.Put(ctx, tenantID, &loser); err != nil {
				return report, err
			}
			report.Collapsed++
			report.Removed = append(report.Removed, models.RemovedProduct{
				ID:       loser.ID,
				Supplier: loser.Supplier,
				WinnerID: winner.ID,
			})
			if c.trail != nil {
				detail := fmt.Sprintf("collapsed into %s", winner.ID)
				if _, err := c.trail.Append(ctx, tenantID, loser.Supplier, models.OpDeduplication, loser.ID, models.StatusSuccess, loser, detail, nil); err != nil {
					c.log.WithError(err).Warn("failed to log deduplication entry")
				}
			}
		}
	}
	sort.Slice(report.Removed, func(i, j int) bool { return report.Removed[i].ID < report.Removed[j].ID })
	return report, nil
}
