package storage

import (
	"context"
	"sort"
	"sync"

	"supplier-catalog-service/internal/models"
)

// MemoryCatalog is an in-process Catalog used in development and tests.
type MemoryCatalog struct {
	mu      sync.RWMutex
	tenants map[string]map[string]models.CanonicalProduct
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{tenants: make(map[string]map[string]models.CanonicalProduct)}
}

func (m *MemoryCatalog) Get(_ context.Context, tenantID, id string) (*models.CanonicalProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.tenants[tenantID][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryCatalog) Put(_ context.Context, tenantID string, p *models.CanonicalProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tenants[tenantID] == nil {
		m.tenants[tenantID] = make(map[string]models.CanonicalProduct)
	}
	m.tenants[tenantID][p.ID] = *p
	return nil
}

func (m *MemoryCatalog) List(_ context.Context, tenantID string) ([]models.CanonicalProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CanonicalProduct, 0, len(m.tenants[tenantID]))
	for _, p := range m.tenants[tenantID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryTrail is an in-process Trail. Appends within one stream keep order;
// streams are independent.
type MemoryTrail struct {
	mu      sync.RWMutex
	streams map[string][]models.LogEntry
	order   map[string][]string // tenant -> stream keys in first-append order
}

func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{
		streams: make(map[string][]models.LogEntry),
		order:   make(map[string][]string),
	}
}

// The NUL separator cannot appear in either value, so "a"+"b/c" and
// "a/b"+"c" never collapse into one stream.
func streamKey(tenantID, supplier string) string {
	return tenantID + "\x00" + supplier
}

func (m *MemoryTrail) Append(_ context.Context, tenantID, supplier string, e *models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := streamKey(tenantID, supplier)
	if _, ok := m.streams[key]; !ok {
		m.order[tenantID] = append(m.order[tenantID], key)
	}
	m.streams[key] = append(m.streams[key], *e)
	return nil
}

func (m *MemoryTrail) Entries(_ context.Context, tenantID, supplier string) ([]models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.streams[streamKey(tenantID, supplier)]
	out := make([]models.LogEntry, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemoryTrail) Head(_ context.Context, tenantID, supplier string) (*models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.streams[streamKey(tenantID, supplier)]
	if len(src) == 0 {
		return nil, nil
	}
	head := src[len(src)-1]
	return &head, nil
}

func (m *MemoryTrail) Scan(_ context.Context, tenantID string) ([]models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LogEntry
	for _, key := range m.order[tenantID] {
		out = append(out, m.streams[key]...)
	}
	return out, nil
}

// Tamper replaces the entry at index i of a stream. It exists for chain
// verification tests only and has no production caller.
func (m *MemoryTrail) Tamper(tenantID, supplier string, i int, e models.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[streamKey(tenantID, supplier)][i] = e
}
