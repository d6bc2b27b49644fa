package storage

import (
	"context"
	"errors"
	"fmt"

	"supplier-catalog-service/internal/models"
)

// ErrNotFound is returned when a lookup misses. Callers distinguish it from
// a Fault: a miss is a normal outcome, a Fault aborts the batch.
var ErrNotFound = errors.New("storage: not found")

// Fault wraps a storage-level failure (connection lost, disk gone). It is
// fatal for the current batch and always propagated with context.
type Fault struct {
	Op  string
	Err error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Catalog is the storage contract behind the catalog engine. Implementations
// may be backed by memory, a key-value store or a relational store with
// tenant-scoped row filtering; the engine never assumes SQL. The tenant ID
// is an opaque partition key prefixed to every lookup and write.
type Catalog interface {
	// Get returns the product with the given id, tombstoned or not.
	Get(ctx context.Context, tenantID, id string) (*models.CanonicalProduct, error)
	// Put inserts or overwrites a product, atomic per record.
	Put(ctx context.Context, tenantID string, p *models.CanonicalProduct) error
	// List returns all products for the tenant ordered by id ascending,
	// including tombstoned rows.
	List(ctx context.Context, tenantID string) ([]models.CanonicalProduct, error)
}

// Trail is an ordered, durable, write-once store for compliance entries.
// A stream is one (tenant, supplier) pair; entries within a stream keep
// append order. There is no update or delete.
type Trail interface {
	Append(ctx context.Context, tenantID, supplier string, e *models.LogEntry) error
	// Entries returns the stream in append order.
	Entries(ctx context.Context, tenantID, supplier string) ([]models.LogEntry, error)
	// Head returns the most recent entry of the stream, or nil when the
	// stream is empty.
	Head(ctx context.Context, tenantID, supplier string) (*models.LogEntry, error)
	// Scan returns all entries for the tenant across suppliers, append order
	// per stream.
	Scan(ctx context.Context, tenantID string) ([]models.LogEntry, error)
}
