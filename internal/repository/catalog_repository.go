package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

// Cache TTL constants
const (
	ProductCacheTTL = 5 * time.Minute // Single product cache
	ListCacheTTL    = 2 * time.Minute // Full tenant list cache (changes on every integration)
)

// CatalogRepository is the postgres-backed storage.Catalog with a Redis
// read-through cache. The cache is best-effort: Redis being down degrades
// to plain database reads, it never fails a request.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ storage.Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redisClient *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redisClient}
}

func productCacheKey(tenantID, id string) string {
	return fmt.Sprintf("catalog:product:%s:%s", tenantID, id)
}

func listCacheKey(tenantID string) string {
	return fmt.Sprintf("catalog:list:%s", tenantID)
}

func (r *CatalogRepository) Get(ctx context.Context, tenantID, id string) (*models.CanonicalProduct, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, productCacheKey(tenantID, id)).Bytes(); err == nil {
			var p models.CanonicalProduct
			if json.Unmarshal(cached, &p) == nil {
				return &p, nil
			}
		}
	}

	var p models.CanonicalProduct
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.Fault{Op: "catalog get", Err: err}
	}

	if r.redis != nil {
		if data, err := json.Marshal(&p); err == nil {
			r.redis.Set(ctx, productCacheKey(tenantID, id), data, ProductCacheTTL)
		}
	}
	return &p, nil
}

func (r *CatalogRepository) Put(ctx context.Context, tenantID string, p *models.CanonicalProduct) error {
	p.TenantID = tenantID
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "tenant_id"}},
			UpdateAll: true,
		}).
		Create(p).Error
	if err != nil {
		return &storage.Fault{Op: "catalog put", Err: err}
	}
	r.invalidate(ctx, tenantID, p.ID)
	return nil
}

func (r *CatalogRepository) List(ctx context.Context, tenantID string) ([]models.CanonicalProduct, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, listCacheKey(tenantID)).Bytes(); err == nil {
			var out []models.CanonicalProduct
			if json.Unmarshal(cached, &out) == nil {
				return out, nil
			}
		}
	}

	var out []models.CanonicalProduct
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, &storage.Fault{Op: "catalog list", Err: err}
	}

	if r.redis != nil {
		if data, err := json.Marshal(out); err == nil {
			r.redis.Set(ctx, listCacheKey(tenantID), data, ListCacheTTL)
		}
	}
	return out, nil
}

func (r *CatalogRepository) invalidate(ctx context.Context, tenantID, id string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, productCacheKey(tenantID, id), listCacheKey(tenantID))
}
