package compliance

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

func testLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAppendLinksEntriesIntoChain(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, i, "", nil)
		require.NoError(t, err)
	}

	entries, err := trail.Entries(ctx, "acme", "gramore")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, GenesisHash, entries[0].PreviousHash)
	for i, e := range entries {
		assert.Equal(t, i, e.Seq)
		assert.Equal(t, EntryHash(e.DataHash, e.PreviousHash), e.EntryHash)
		if i > 0 {
			assert.Equal(t, entries[i-1].EntryHash, e.PreviousHash)
		}
	}
}

func TestAppendSerializesConcurrentWriters(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, n, "", nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// No fork: every entry claims a distinct previous hash and the chain verifies.
	auditor := NewAuditor(trail, testLogrus())
	result, err := auditor.VerifyChain(ctx, "acme", "gramore")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, writers, result.Entries)
}

func TestStreamsAreIndependent(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, "a", "", nil)
	require.NoError(t, err)
	_, err = logger.Append(ctx, "acme", "elmar", models.OpExtraction, "p2", models.StatusSuccess, "b", "", nil)
	require.NoError(t, err)

	gramore, _ := trail.Entries(ctx, "acme", "gramore")
	elmar, _ := trail.Entries(ctx, "acme", "elmar")
	require.Len(t, gramore, 1)
	require.Len(t, elmar, 1)
	assert.Equal(t, GenesisHash, gramore[0].PreviousHash)
	assert.Equal(t, GenesisHash, elmar[0].PreviousHash)
}

func TestHaltedStreamRefusesAppends(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	logger.Halt("acme", "gramore")

	_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, "a", "", nil)
	var halted *ErrStreamHalted
	require.True(t, errors.As(err, &halted))
	assert.True(t, logger.Halted("acme", "gramore"))

	// Other streams keep accepting appends.
	_, err = logger.Append(ctx, "acme", "elmar", models.OpExtraction, "p1", models.StatusSuccess, "a", "", nil)
	assert.NoError(t, err)
}

func TestStreamKeysAreUnambiguous(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	// Tenant "a" with supplier "b/c" and tenant "a/b" with supplier "c"
	// must land in distinct streams, each starting at genesis.
	_, err := logger.Append(ctx, "a", "b/c", models.OpExtraction, "p1", models.StatusSuccess, "x", "", nil)
	require.NoError(t, err)
	_, err = logger.Append(ctx, "a/b", "c", models.OpExtraction, "p2", models.StatusSuccess, "y", "", nil)
	require.NoError(t, err)

	first, err := trail.Entries(ctx, "a", "b/c")
	require.NoError(t, err)
	second, err := trail.Entries(ctx, "a/b", "c")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, GenesisHash, first[0].PreviousHash)
	assert.Equal(t, GenesisHash, second[0].PreviousHash)
	assert.Equal(t, 0, first[0].Seq)
	assert.Equal(t, 0, second[0].Seq)
}

func TestAppendRecordsViolatedFields(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	entry, err := logger.Append(ctx, "acme", "gramore", models.OpValidation, "p1", models.StatusError, nil, "validation failed", []string{"name", "unit"})
	require.NoError(t, err)

	assert.JSONEq(t, `["name","unit"]`, string(entry.Fields))
	assert.Equal(t, models.StatusError, entry.Status)
}

func TestAppendTimestampsAreClockDriven(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	logger.clock = func() time.Time { return fixed }

	entry, err := logger.Append(context.Background(), "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, "a", "", nil)
	require.NoError(t, err)
	assert.Equal(t, fixed, entry.Timestamp)
}
