package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"supplier-catalog-service/internal/compliance"
	"supplier-catalog-service/internal/metrics"
	"supplier-catalog-service/internal/middleware"
	"supplier-catalog-service/internal/models"
)

type ComplianceHandler struct {
	auditor          *compliance.Auditor
	logger           *compliance.Logger
	metrics          *metrics.Registry
	defaultThreshold float64
	defaultRetention int
}

func NewComplianceHandler(auditor *compliance.Auditor, logger *compliance.Logger, reg *metrics.Registry, threshold float64, retentionDays int) *ComplianceHandler {
	return &ComplianceHandler{
		auditor:          auditor,
		logger:           logger,
		metrics:          reg,
		defaultThreshold: threshold,
		defaultRetention: retentionDays,
	}
}

// VerifyChain re-walks a supplier stream and reports the first broken link,
// if any. A verified break halts further appends on that stream.
// GET /api/v1/compliance/suppliers/:supplier/verify
func (h *ComplianceHandler) VerifyChain(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	supplier := c.Param("supplier")

	result, err := h.auditor.VerifyChain(c.Request.Context(), tenantID, supplier)
	if err != nil {
		storeError(c, "VERIFY_FAILED", "Failed to verify chain", err)
		return
	}

	if !result.Valid {
		breakErr := &compliance.ChainIntegrityError{TenantID: tenantID, Supplier: supplier, Index: *result.BreakIndex}
		h.logger.Halt(tenantID, supplier)
		if h.metrics != nil {
			h.metrics.ChainBreaks.Inc()
		}
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"data":    result,
			"error":   gin.H{"code": "CHAIN_BROKEN", "message": breakErr.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// TraceProduct reconstructs the full lifecycle of one product
// GET /api/v1/compliance/suppliers/:supplier/trace/:id
func (h *ComplianceHandler) TraceProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	timeline, err := h.auditor.Trace(c.Request.Context(), tenantID, c.Param("id"), c.Param("supplier"))
	if err != nil {
		storeError(c, "TRACE_FAILED", "Failed to trace product", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": timeline})
}

// AuditSupplier aggregates a supplier stream and flags low success rates
// GET /api/v1/compliance/suppliers/:supplier/audit?threshold=0.95
func (h *ComplianceHandler) AuditSupplier(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	supplier := c.Param("supplier")

	threshold := h.defaultThreshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "INVALID_THRESHOLD", Message: "threshold must be a number between 0 and 1", Field: "threshold"},
			})
			return
		}
		threshold = v
	}

	report, err := h.auditor.Audit(c.Request.Context(), tenantID, supplier, threshold)
	if err != nil {
		storeError(c, "AUDIT_FAILED", "Failed to audit supplier", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// CheckRetention reports trail entries past the retention window. Nothing
// is deleted; a separate archival process consumes this report.
// GET /api/v1/compliance/retention?days=365
func (h *ComplianceHandler) CheckRetention(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	days := h.defaultRetention
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "INVALID_DAYS", Message: "days must be a positive integer", Field: "days"},
			})
			return
		}
		days = v
	}

	report, err := h.auditor.CheckRetention(c.Request.Context(), tenantID, days)
	if err != nil {
		storeError(c, "RETENTION_FAILED", "Failed to check retention", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}
