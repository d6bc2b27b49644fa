package compliance

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/storage"
)

// requiredOps is the full product lifecycle a complete timeline shows.
var requiredOps = []models.Operation{
	models.OpExtraction,
	models.OpTransformation,
	models.OpValidation,
	models.OpIntegration,
}

// Auditor reconstructs timelines and computes compliance metrics from the
// trail. It only reads; the trail stays append-only.
type Auditor struct {
	trail storage.Trail
	log   *logrus.Entry
	clock func() time.Time
}

func NewAuditor(trail storage.Trail, logger *logrus.Logger) *Auditor {
	return &Auditor{
		trail: trail,
		log:   logger.WithField("component", "compliance-auditor"),
		clock: time.Now,
	}
}

// VerifyChain walks a stream from genesis to head, recomputing every link.
// Any insertion, deletion or mutation of a past entry shows up as the first
// broken index.
func (a *Auditor) VerifyChain(ctx context.Context, tenantID, supplier string) (*models.ChainVerification, error) {
	entries, err := a.trail.Entries(ctx, tenantID, supplier)
	if err != nil {
		return nil, err
	}

	result := &models.ChainVerification{Supplier: supplier, Entries: len(entries), Valid: true}
	prev := GenesisHash
	for i, e := range entries {
		if e.PreviousHash != prev || e.EntryHash != EntryHash(e.DataHash, e.PreviousHash) {
			idx := i
			result.Valid = false
			result.BreakIndex = &idx
			a.log.WithFields(logrus.Fields{
				"tenant":   tenantID,
				"supplier": supplier,
				"index":    i,
			}).Error("chain verification failed")
			return result, nil
		}
		prev = e.EntryHash
	}
	return result, nil
}

// Trace collects every entry for one product and orders it by timestamp,
// yielding the record's full lifecycle.
func (a *Auditor) Trace(ctx context.Context, tenantID, productID, supplier string) (*models.Timeline, error) {
	entries, err := a.trail.Entries(ctx, tenantID, supplier)
	if err != nil {
		return nil, err
	}

	timeline := &models.Timeline{ProductID: productID, Supplier: supplier}
	for _, e := range entries {
		if e.EntityID == productID {
			timeline.Entries = append(timeline.Entries, e)
		}
	}
	if len(timeline.Entries) == 0 {
		timeline.Reason = "no trail entries for product"
		return timeline, nil
	}

	sort.SliceStable(timeline.Entries, func(i, j int) bool {
		return timeline.Entries[i].Timestamp.Before(timeline.Entries[j].Timestamp)
	})

	seen := make(map[models.Operation]bool)
	for _, e := range timeline.Entries {
		if !seen[e.Operation] {
			seen[e.Operation] = true
			timeline.Found = append(timeline.Found, e.Operation)
		}
	}
	timeline.Traceable = true
	timeline.Complete = true
	for _, op := range requiredOps {
		if !seen[op] {
			timeline.Complete = false
		}
	}
	return timeline, nil
}

// Audit aggregates a supplier stream by operation and flags the stream when
// its success rate falls below threshold.
func (a *Auditor) Audit(ctx context.Context, tenantID, supplier string, threshold float64) (*models.AuditReport, error) {
	entries, err := a.trail.Entries(ctx, tenantID, supplier)
	if err != nil {
		return nil, err
	}

	report := &models.AuditReport{
		Supplier:  supplier,
		AuditedAt: a.clock().UTC(),
	}
	if len(entries) == 0 {
		report.Status = models.AuditStatusNoLogs
		return report, nil
	}

	report.Status = models.AuditStatusAudited
	report.TotalOperations = len(entries)
	report.OperationsByType = make(map[models.Operation]int)
	successes := 0
	for _, e := range entries {
		report.OperationsByType[e.Operation]++
		if e.Status == models.StatusSuccess {
			successes++
		}
	}
	report.SuccessRate = float64(successes) / float64(len(entries))

	if report.SuccessRate < threshold {
		report.ComplianceStatus = models.ComplianceWarning
		report.Issues = append(report.Issues, "success rate below threshold")
	} else {
		report.ComplianceStatus = models.ComplianceCompliant
	}
	return report, nil
}

// CheckRetention reports which entries an archival process should pick up.
// It is a pure computation over timestamps and never deletes anything.
func (a *Auditor) CheckRetention(ctx context.Context, tenantID string, retentionDays int) (*models.RetentionReport, error) {
	entries, err := a.trail.Scan(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cutoff := a.clock().UTC().AddDate(0, 0, -retentionDays)
	report := &models.RetentionReport{
		RetentionDays:      retentionDays,
		CutoffDate:         cutoff,
		EligibleBySupplier: make(map[string]int),
	}
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			report.EligibleCount++
			report.EligibleBySupplier[e.Supplier]++
		}
	}
	return report, nil
}
