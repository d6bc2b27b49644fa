package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

func seededStream(t *testing.T, trail *storage.MemoryTrail, tenant, supplier string, ops []models.Operation, statuses []models.EntryStatus) *Logger {
	t.Helper()
	logger := NewLogger(trail, testLogrus())
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	for i, op := range ops {
		tick := base.Add(time.Duration(i) * time.Second)
		logger.clock = func() time.Time { return tick }
		_, err := logger.Append(context.Background(), tenant, supplier, op, "p1", statuses[i], i, "", nil)
		require.NoError(t, err)
	}
	return logger
}

func TestVerifyChainOnEmptyStream(t *testing.T) {
	auditor := NewAuditor(storage.NewMemoryTrail(), testLogrus())

	result, err := auditor.VerifyChain(context.Background(), "acme", "gramore")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Zero(t, result.Entries)
	assert.Nil(t, result.BreakIndex)
}

func TestVerifyChainDetectsMutatedPayload(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, i, "", nil)
		require.NoError(t, err)
	}

	auditor := NewAuditor(trail, testLogrus())
	result, err := auditor.VerifyChain(ctx, "acme", "gramore")
	require.NoError(t, err)
	require.True(t, result.Valid)

	// Rewrite entry 2's payload hash after the fact.
	entries, _ := trail.Entries(ctx, "acme", "gramore")
	tampered := entries[2]
	tampered.DataHash = "deadbeef"
	trail.Tamper("acme", "gramore", 2, tampered)

	result, err = auditor.VerifyChain(ctx, "acme", "gramore")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BreakIndex)
	assert.Equal(t, 2, *result.BreakIndex)
}

func TestVerifyChainDetectsDeletedEntry(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, i, "", nil)
		require.NoError(t, err)
	}

	// Splice entry 1 out by overwriting it with entry 2.
	entries, _ := trail.Entries(ctx, "acme", "gramore")
	trail.Tamper("acme", "gramore", 1, entries[2])

	auditor := NewAuditor(trail, testLogrus())
	result, err := auditor.VerifyChain(ctx, "acme", "gramore")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.NotNil(t, result.BreakIndex)
	assert.Equal(t, 1, *result.BreakIndex)
}

func TestTraceReturnsFullLifecycle(t *testing.T) {
	trail := storage.NewMemoryTrail()
	seededStream(t, trail, "acme", "gramore",
		[]models.Operation{models.OpExtraction, models.OpTransformation, models.OpValidation, models.OpIntegration},
		[]models.EntryStatus{models.StatusSuccess, models.StatusSuccess, models.StatusSuccess, models.StatusSuccess},
	)

	auditor := NewAuditor(trail, testLogrus())
	timeline, err := auditor.Trace(context.Background(), "acme", "p1", "gramore")
	require.NoError(t, err)

	assert.True(t, timeline.Traceable)
	assert.True(t, timeline.Complete)
	require.Len(t, timeline.Entries, 4)
	assert.Equal(t, []models.Operation{
		models.OpExtraction, models.OpTransformation, models.OpValidation, models.OpIntegration,
	}, timeline.Found)
	for i := 1; i < len(timeline.Entries); i++ {
		assert.False(t, timeline.Entries[i].Timestamp.Before(timeline.Entries[i-1].Timestamp))
	}
}

func TestTraceUnknownProduct(t *testing.T) {
	auditor := NewAuditor(storage.NewMemoryTrail(), testLogrus())

	timeline, err := auditor.Trace(context.Background(), "acme", "missing", "gramore")
	require.NoError(t, err)
	assert.False(t, timeline.Traceable)
	assert.Empty(t, timeline.Entries)
	assert.NotEmpty(t, timeline.Reason)
}

func TestTraceIncompleteLifecycle(t *testing.T) {
	trail := storage.NewMemoryTrail()
	seededStream(t, trail, "acme", "gramore",
		[]models.Operation{models.OpExtraction, models.OpTransformation},
		[]models.EntryStatus{models.StatusSuccess, models.StatusError},
	)

	auditor := NewAuditor(trail, testLogrus())
	timeline, err := auditor.Trace(context.Background(), "acme", "p1", "gramore")
	require.NoError(t, err)
	assert.True(t, timeline.Traceable)
	assert.False(t, timeline.Complete)
}

func TestAuditFlagsLowSuccessRate(t *testing.T) {
	trail := storage.NewMemoryTrail()
	ops := make([]models.Operation, 20)
	statuses := make([]models.EntryStatus, 20)
	for i := range ops {
		ops[i] = models.OpIntegration
		statuses[i] = models.StatusSuccess
	}
	statuses[7] = models.StatusError
	statuses[13] = models.StatusError
	seededStream(t, trail, "acme", "gramore", ops, statuses)

	auditor := NewAuditor(trail, testLogrus())
	ctx := context.Background()

	report, err := auditor.Audit(ctx, "acme", "gramore", 0.95)
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusAudited, report.Status)
	assert.Equal(t, 20, report.TotalOperations)
	assert.InDelta(t, 0.9, report.SuccessRate, 1e-9)
	assert.Equal(t, models.ComplianceWarning, report.ComplianceStatus)
	assert.NotEmpty(t, report.Issues)

	report, err = auditor.Audit(ctx, "acme", "gramore", 0.85)
	require.NoError(t, err)
	assert.Equal(t, models.ComplianceCompliant, report.ComplianceStatus)
	assert.Empty(t, report.Issues)
}

func TestAuditCountsOperationsByType(t *testing.T) {
	trail := storage.NewMemoryTrail()
	seededStream(t, trail, "acme", "gramore",
		[]models.Operation{models.OpExtraction, models.OpExtraction, models.OpTransformation, models.OpIntegration},
		[]models.EntryStatus{models.StatusSuccess, models.StatusSuccess, models.StatusSuccess, models.StatusSuccess},
	)

	auditor := NewAuditor(trail, testLogrus())
	report, err := auditor.Audit(context.Background(), "acme", "gramore", 0.95)
	require.NoError(t, err)

	assert.Equal(t, 2, report.OperationsByType[models.OpExtraction])
	assert.Equal(t, 1, report.OperationsByType[models.OpTransformation])
	assert.Equal(t, 1, report.OperationsByType[models.OpIntegration])
}

func TestAuditWithoutLogs(t *testing.T) {
	auditor := NewAuditor(storage.NewMemoryTrail(), testLogrus())

	report, err := auditor.Audit(context.Background(), "acme", "gramore", 0.95)
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusNoLogs, report.Status)
	assert.Empty(t, report.ComplianceStatus)
}

func TestCheckRetentionReportsOldEntriesOnly(t *testing.T) {
	trail := storage.NewMemoryTrail()
	logger := NewLogger(trail, testLogrus())
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	logger.clock = func() time.Time { return old }
	_, err := logger.Append(ctx, "acme", "gramore", models.OpExtraction, "p1", models.StatusSuccess, "a", "", nil)
	require.NoError(t, err)
	_, err = logger.Append(ctx, "acme", "elmar", models.OpExtraction, "p2", models.StatusSuccess, "b", "", nil)
	require.NoError(t, err)
	logger.clock = func() time.Time { return recent }
	_, err = logger.Append(ctx, "acme", "gramore", models.OpIntegration, "p1", models.StatusSuccess, "c", "", nil)
	require.NoError(t, err)

	auditor := NewAuditor(trail, testLogrus())
	auditor.clock = func() time.Time { return time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC) }

	report, err := auditor.CheckRetention(ctx, "acme", 365)
	require.NoError(t, err)
	assert.Equal(t, 365, report.RetentionDays)
	assert.Equal(t, 2, report.EligibleCount)
	assert.Equal(t, 1, report.EligibleBySupplier["gramore"])
	assert.Equal(t, 1, report.EligibleBySupplier["elmar"])

	// The trail itself is untouched.
	entries, _ := trail.Scan(ctx, "acme")
	assert.Len(t, entries, 3)
}
