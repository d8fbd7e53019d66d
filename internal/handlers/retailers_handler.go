package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pim-service/internal/catalog"
	"pim-service/internal/models"
)

// RetailersHandler serves the static retailer field catalog.
type RetailersHandler struct {
	catalog *catalog.Catalog
}

func NewRetailersHandler(cat *catalog.Catalog) *RetailersHandler {
	return &RetailersHandler{catalog: cat}
}

// ListRetailers returns the supported retailer ids
// GET /api/v1/retailers
func (h *RetailersHandler) ListRetailers(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: h.catalog.Retailers()})
}

// GetRetailerFields returns one retailer's field catalog, optionally scoped to
// a category
// GET /api/v1/retailers/:retailerId/fields?categoryId=
func (h *RetailersHandler) GetRetailerFields(c *gin.Context) {
	fields, err := h.catalog.Fields(c.Param("retailerId"), c.Query("categoryId"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "RETAILER_NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: fields})
}

// GetRetailerCategories returns the category ids a retailer's catalog defines
// GET /api/v1/retailers/:retailerId/categories
func (h *RetailersHandler) GetRetailerCategories(c *gin.Context) {
	retailerID := c.Param("retailerId")
	if _, err := h.catalog.Fields(retailerID, ""); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "RETAILER_NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}

	categories := h.catalog.Categories(retailerID)
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: categories})
}
