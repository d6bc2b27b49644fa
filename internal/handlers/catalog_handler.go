package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"supplier-catalog-service/internal/catalog"
	"supplier-catalog-service/internal/events"
	"supplier-catalog-service/internal/middleware"
	"supplier-catalog-service/internal/models"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
	events  *events.Publisher
}

func NewCatalogHandler(cat *catalog.Catalog, pub *events.Publisher) *CatalogHandler {
	return &CatalogHandler{catalog: cat, events: pub}
}

// GetProducts returns the full active catalog for the tenant
// GET /api/v1/catalog/products
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	products, err := h.catalog.Search(c.Request.Context(), tenantID, catalog.SearchFilter{})
	if err != nil {
		storeError(c, "LIST_FAILED", "Failed to list products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

// GetProduct returns one product by its content-derived id
// GET /api/v1/catalog/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	product, err := h.catalog.Get(c.Request.Context(), tenantID, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PRODUCT_NOT_FOUND", Message: "Product not found"},
		})
		return
	}
	if err != nil {
		storeError(c, "GET_FAILED", "Failed to retrieve product", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

// SearchProducts searches the catalog with ANDed predicates
// POST /api/v1/catalog/search
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var filter catalog.SearchFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_FILTER", Message: err.Error()},
		})
		return
	}

	products, err := h.catalog.Search(c.Request.Context(), tenantID, filter)
	if err != nil {
		storeError(c, "SEARCH_FAILED", "Failed to search products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

// CompareProducts lists matching products across suppliers, cheapest first
// GET /api/v1/catalog/compare?name=...
func (h *CatalogHandler) CompareProducts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "NAME_REQUIRED", Message: "Query parameter 'name' is required", Field: "name"},
		})
		return
	}

	products, err := h.catalog.Compare(c.Request.Context(), tenantID, name)
	if err != nil {
		storeError(c, "COMPARE_FAILED", "Failed to compare products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
		"total":   len(products),
	})
}

// GetStatistics returns aggregate catalog statistics
// GET /api/v1/catalog/statistics
func (h *CatalogHandler) GetStatistics(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	stats, err := h.catalog.Statistics(c.Request.Context(), tenantID)
	if err != nil {
		storeError(c, "STATS_FAILED", "Failed to retrieve statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// DeleteProduct tombstones a product; the row is retained for audit
// DELETE /api/v1/catalog/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	id := c.Param("id")

	product, err := h.catalog.Get(c.Request.Context(), tenantID, id)
	if err == nil {
		err = h.catalog.Remove(c.Request.Context(), tenantID, id)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "PRODUCT_NOT_FOUND", Message: "Product not found"},
		})
		return
	}
	if err != nil {
		storeError(c, "DELETE_FAILED", "Failed to delete product", err)
		return
	}

	h.events.Publish(events.ProductTombstoned, tenantID, product.Supplier, id, nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemoveDuplicates collapses re-extraction duplicates per supplier
// POST /api/v1/catalog/deduplicate
func (h *CatalogHandler) RemoveDuplicates(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	report, err := h.catalog.RemoveDuplicates(c.Request.Context(), tenantID)
	if err != nil {
		storeError(c, "DEDUP_FAILED", "Failed to remove duplicates", err)
		return
	}

	for _, removed := range report.Removed {
		h.events.Publish(events.ProductDeduplicated, tenantID, removed.Supplier, removed.ID, nil)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

func storeError(c *gin.Context, code, message string, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error:   models.Error{Code: code, Message: message + ": " + err.Error()},
	})
}
