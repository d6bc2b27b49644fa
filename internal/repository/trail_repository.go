package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

// TrailRepository is the postgres-backed storage.Trail. Rows are insert-only;
// no update or delete statement exists in this type. Stream order is kept by
// the per-stream sequence number assigned at append time.
type TrailRepository struct {
	db *gorm.DB
}

var _ storage.Trail = (*TrailRepository)(nil)

func NewTrailRepository(db *gorm.DB) *TrailRepository {
	return &TrailRepository{db: db}
}

func (r *TrailRepository) Append(ctx context.Context, tenantID, supplier string, e *models.LogEntry) error {
	e.TenantID = tenantID
	e.Supplier = supplier
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return &storage.Fault{Op: "trail append", Err: err}
	}
	return nil
}

func (r *TrailRepository) Entries(ctx context.Context, tenantID, supplier string) ([]models.LogEntry, error) {
	var out []models.LogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier = ?", tenantID, supplier).
		Order("seq asc").
		Find(&out).Error
	if err != nil {
		return nil, &storage.Fault{Op: "trail entries", Err: err}
	}
	return out, nil
}

func (r *TrailRepository) Head(ctx context.Context, tenantID, supplier string) (*models.LogEntry, error) {
	var e models.LogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND supplier = ?", tenantID, supplier).
		Order("seq desc").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &storage.Fault{Op: "trail head", Err: err}
	}
	return &e, nil
}

func (r *TrailRepository) Scan(ctx context.Context, tenantID string) ([]models.LogEntry, error) {
	var out []models.LogEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("supplier asc, seq asc").
		Find(&out).Error
	if err != nil {
		return nil, &storage.Fault{Op: "trail scan", Err: err}
	}
	return out, nil
}
