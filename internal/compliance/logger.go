// Package compliance maintains the append-only, hash-linked trail written
// alongside every pipeline stage, and audits it.
package compliance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

// GenesisHash anchors the first entry of every stream.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ChainIntegrityError signals a verified hash mismatch in a stream. It is
// fatal for that stream: further appends are refused until the break is
// investigated, since it indicates tampering or a concurrency bug.
type ChainIntegrityError struct {
	TenantID string
	Supplier string
	Index    int
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("compliance chain broken for tenant %s supplier %s at entry %d", e.TenantID, e.Supplier, e.Index)
}

// ErrStreamHalted is returned for appends to a stream that was halted after
// an integrity failure.
type ErrStreamHalted struct {
	TenantID string
	Supplier string
}

func (e *ErrStreamHalted) Error() string {
	return fmt.Sprintf("compliance stream halted for tenant %s supplier %s, appends refused", e.TenantID, e.Supplier)
}

// Logger appends hash-linked entries to the trail. Append is the
// serialization point for a stream: concurrent writers to the same
// (tenant, supplier) stream queue on its lock so no two entries can claim
// the same previous hash. Writers to different streams proceed
// independently.
type Logger struct {
	trail storage.Trail
	log   *logrus.Entry
	clock func() time.Time

	mu      sync.Mutex
	streams map[string]*streamState
}

type streamState struct {
	mu     sync.Mutex
	halted bool
}

func NewLogger(trail storage.Trail, logger *logrus.Logger) *Logger {
	return &Logger{
		trail:   trail,
		log:     logger.WithField("component", "compliance-logger"),
		clock:   time.Now,
		streams: make(map[string]*streamState),
	}
}

func (l *Logger) stream(tenantID, supplier string) *streamState {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := tenantID + "\x00" + supplier
	s, ok := l.streams[key]
	if !ok {
		s = &streamState{}
		l.streams[key] = s
	}
	return s
}

// Append writes one entry: it hashes the payload, links it to the current
// head and advances the head in a single critical section per stream.
func (l *Logger) Append(ctx context.Context, tenantID, supplier string, op models.Operation, entityID string, status models.EntryStatus, payload interface{}, detail string, fields []string) (*models.LogEntry, error) {
	s := l.stream(tenantID, supplier)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted {
		return nil, &ErrStreamHalted{TenantID: tenantID, Supplier: supplier}
	}

	head, err := l.trail.Head(ctx, tenantID, supplier)
	if err != nil {
		return nil, err
	}
	prev := GenesisHash
	seq := 0
	if head != nil {
		prev = head.EntryHash
		seq = head.Seq + 1
	}

	dataHash := hashPayload(payload)
	entry := &models.LogEntry{
		TenantID:     tenantID,
		Supplier:     supplier,
		Seq:          seq,
		Timestamp:    l.clock().UTC(),
		Operation:    op,
		EntityID:     entityID,
		Status:       status,
		Detail:       detail,
		DataHash:     dataHash,
		PreviousHash: prev,
		EntryHash:    EntryHash(dataHash, prev),
	}
	if len(fields) > 0 {
		raw, _ := json.Marshal(fields)
		entry.Fields = raw
	}

	if err := l.trail.Append(ctx, tenantID, supplier, entry); err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"supplier": supplier,
		"op":       op,
		"entity":   entityID,
		"status":   status,
		"seq":      seq,
	}).Debug("trail entry appended")
	return entry, nil
}

// Halt refuses further appends to a stream. Called after a verified
// integrity break.
func (l *Logger) Halt(tenantID, supplier string) {
	s := l.stream(tenantID, supplier)
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
	l.log.WithFields(logrus.Fields{"tenant": tenantID, "supplier": supplier}).Error("compliance stream halted")
}

// Halted reports whether appends to the stream are refused.
func (l *Logger) Halted(tenantID, supplier string) bool {
	s := l.stream(tenantID, supplier)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// EntryHash derives an entry's own stored hash from its payload hash and
// the hash of its predecessor.
func EntryHash(dataHash, previousHash string) string {
	sum := sha256.Sum256([]byte(dataHash + previousHash))
	return hex.EncodeToString(sum[:])
}

func hashPayload(payload interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
