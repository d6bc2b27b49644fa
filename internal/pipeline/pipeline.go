// Package pipeline composes canonicalizer, compliance trail and catalog
// store for one supplier batch.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"supplier-catalog-service/internal/canonical"
	"supplier-catalog-service/internal/catalog"
	"supplier-catalog-service/internal/compliance"
	"supplier-catalog-service/internal/events"
	"supplier-catalog-service/internal/metrics"
	"supplier-catalog-service/internal/models"
)

// Pipeline runs supplier batches through normalization, trail logging and
// catalog integration. One Pipeline serves all tenants; business rules are
// passed per run. Metrics and events are optional.
type Pipeline struct {
	catalog *catalog.Catalog
	trail   *compliance.Logger
	events  *events.Publisher
	metrics *metrics.Registry
	log     *logrus.Entry
}

func New(cat *catalog.Catalog, trail *compliance.Logger, pub *events.Publisher, reg *metrics.Registry, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		catalog: cat,
		trail:   trail,
		events:  pub,
		metrics: reg,
		log:     logger.WithField("component", "pipeline"),
	}
}

// Run processes one supplier batch. Records fail independently: a
// validation error skips the record, logs it and moves on. A storage fault
// or a chain-integrity break aborts the batch; everything integrated and
// logged up to that point stays valid, since each record's integration and
// trail entries are idempotent and re-playable. Cancellation is cooperative,
// checked between records.
func (p *Pipeline) Run(ctx context.Context, tenantID, supplier string, records []models.RawRecord, rules canonical.BusinessRules) (*models.BatchReport, error) {
	start := time.Now()
	report := &models.BatchReport{
		RunID:    uuid.NewString(),
		Supplier: supplier,
		Total:    len(records),
	}
	log := p.log.WithFields(logrus.Fields{
		"tenant":   tenantID,
		"supplier": supplier,
		"run_id":   report.RunID,
		"records":  len(records),
	})
	log.Info("batch started")

	for _, raw := range records {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			report.AbortReason = "cancelled"
			p.finish(report, start, log)
			return report, err
		}
		if err := p.process(ctx, tenantID, supplier, raw, rules, report); err != nil {
			report.Aborted = true
			report.AbortReason = err.Error()
			p.finish(report, start, log)
			return report, err
		}
	}

	p.events.Publish(events.BatchCompleted, tenantID, supplier, report.RunID, report)
	p.finish(report, start, log)
	return report, nil
}

// process runs one record through every stage. A returned error is fatal
// for the batch; per-record problems are recorded on the report instead.
func (p *Pipeline) process(ctx context.Context, tenantID, supplier string, raw models.RawRecord, rules canonical.BusinessRules, report *models.BatchReport) error {
	entityID := canonical.ProductID(supplier, raw.SupplierProductID, raw.Name)

	if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpExtraction, entityID, models.StatusSuccess, raw, raw.SourceURL, nil); err != nil {
		return err
	}
	p.count(func(r *metrics.Registry) { r.TrailAppended.Inc() })

	product, err := canonical.Normalize(raw, supplier, rules)
	if err != nil {
		var verr *canonical.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpTransformation, entityID, models.StatusError, raw, verr.Error(), verr.Fields); err != nil {
			return err
		}
		if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpValidation, entityID, models.StatusError, raw, verr.Error(), verr.Fields); err != nil {
			return err
		}
		report.Skipped++
		report.Failures = append(report.Failures, models.RecordFailure{
			SupplierProductID: raw.SupplierProductID,
			EntityID:          entityID,
			Stage:             models.OpValidation,
			Reason:            verr.Error(),
			Fields:            verr.Fields,
		})
		p.count(func(r *metrics.Registry) { r.ValidationFailures.Inc(); r.RecordsSkipped.Inc() })
		return nil
	}

	if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpTransformation, product.ID, models.StatusSuccess, product, "", nil); err != nil {
		return err
	}
	if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpValidation, product.ID, models.StatusSuccess, product, "", nil); err != nil {
		return err
	}

	inserted, err := p.catalog.Upsert(ctx, tenantID, product)
	if err != nil {
		if _, lerr := p.trail.Append(ctx, tenantID, supplier, models.OpIntegration, product.ID, models.StatusError, product, err.Error(), nil); lerr != nil {
			return lerr
		}
		return err
	}
	if _, err := p.trail.Append(ctx, tenantID, supplier, models.OpIntegration, product.ID, models.StatusSuccess, product, "", nil); err != nil {
		return err
	}

	if inserted {
		report.Inserted++
	} else {
		report.Updated++
	}
	p.count(func(r *metrics.Registry) { r.RecordsIntegrated.Inc() })
	p.events.Publish(events.ProductIntegrated, tenantID, supplier, product.ID, nil)
	return nil
}

func (p *Pipeline) finish(report *models.BatchReport, start time.Time, log *logrus.Entry) {
	p.count(func(r *metrics.Registry) {
		r.BatchDurationSec.Observe(time.Since(start).Seconds())
		if report.Aborted {
			r.BatchesAborted.Inc()
		}
	})
	log.WithFields(logrus.Fields{
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
		"aborted":  report.Aborted,
	}).Info("batch finished")
}

func (p *Pipeline) count(fn func(*metrics.Registry)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}
