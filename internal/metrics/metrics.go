package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	RecordsIntegrated  prometheus.Counter
	RecordsSkipped     prometheus.Counter
	ValidationFailures prometheus.Counter
	BatchesAborted     prometheus.Counter
	ChainBreaks        prometheus.Counter
	TrailAppended      prometheus.Counter
	BatchDurationSec   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	integrated := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_records_integrated_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_records_skipped_total"})
	validationFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_validation_failures_total"})
	aborted := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_batches_aborted_total"})
	chainBreaks := prometheus.NewCounter(prometheus.CounterOpts{Name: "compliance_chain_breaks_total"})
	trailAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "compliance_trail_appended_total"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_batch_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(integrated, skipped, validationFailures, aborted, chainBreaks, trailAppended, batchDuration)
	return &Registry{
		reg:                r,
		RecordsIntegrated:  integrated,
		RecordsSkipped:     skipped,
		ValidationFailures: validationFailures,
		BatchesAborted:     aborted,
		ChainBreaks:        chainBreaks,
		TrailAppended:      trailAppended,
		BatchDurationSec:   batchDuration,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
