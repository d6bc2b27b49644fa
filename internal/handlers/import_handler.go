package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"supplier-catalog-service/internal/adapters"
	"supplier-catalog-service/internal/canonical"
	"supplier-catalog-service/internal/middleware"
	"supplier-catalog-service/internal/models"
	"supplier-catalog-service/internal/pipeline"
)

type ImportHandler struct {
	pipeline     *pipeline.Pipeline
	defaultRules canonical.BusinessRules
}

func NewImportHandler(p *pipeline.Pipeline, rules canonical.BusinessRules) *ImportHandler {
	return &ImportHandler{pipeline: p, defaultRules: rules}
}

// GetImportTemplate returns the feed column contract as CSV, XLSX or JSON
// GET /api/v1/feeds/template?format=csv
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	switch c.DefaultQuery("format", "json") {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=supplier_feed_template.csv")
		if err := adapters.WriteCSVTemplate(c.Writer); err != nil {
			storeError(c, "TEMPLATE_FAILED", "Failed to generate template", err)
		}
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=supplier_feed_template.xlsx")
		if err := adapters.WriteTemplate(c.Writer); err != nil {
			storeError(c, "TEMPLATE_FAILED", "Failed to generate template", err)
		}
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "template": adapters.FeedColumns})
	}
}

// ImportFeed runs one supplier feed through the full pipeline. Per-record
// validation failures are reported on the batch report, never abort it.
// POST /api/v1/feeds/import (multipart: file, supplier; optional margin_percent, shipping_fee)
func (h *ImportHandler) ImportFeed(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	supplier := c.PostForm("supplier")
	if supplier == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "SUPPLIER_REQUIRED", Message: "Form field 'supplier' is required", Field: "supplier"},
		})
		return
	}

	rules := h.defaultRules
	if raw := c.PostForm("margin_percent"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "INVALID_MARGIN", Message: "margin_percent must be a number", Field: "margin_percent"},
			})
			return
		}
		rules.MarginPercent = v
	}
	if raw := c.PostForm("shipping_fee"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "INVALID_SHIPPING", Message: "shipping_fee must be a number", Field: "shipping_fee"},
			})
			return
		}
		rules.ShippingFee = v
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FILE_REQUIRED", Message: "Multipart field 'file' is required", Field: "file"},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		storeError(c, "FILE_OPEN_FAILED", "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	sourceURL := c.PostForm("source_url")
	if sourceURL == "" {
		sourceURL = "upload://" + fileHeader.Filename
	}
	now := time.Now().UTC()

	var records []models.RawRecord
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		records, err = adapters.ParseCSV(file, sourceURL, now)
	case ".xlsx":
		records, err = adapters.ParseXLSX(file, sourceURL, now)
	case ".json":
		records, err = adapters.ParseJSON(file, sourceURL, now)
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "UNSUPPORTED_FORMAT", Message: "Supported feed formats: csv, xlsx, json"},
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "FEED_PARSE_FAILED", Message: err.Error()},
		})
		return
	}

	report, err := h.pipeline.Run(c.Request.Context(), tenantID, supplier, records, rules)
	if err != nil {
		// The report enumerates what happened before the abort.
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"data":    report,
			"error":   gin.H{"code": "BATCH_ABORTED", "message": err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}
