package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pim-service/internal/clients"
	"pim-service/internal/middleware"
	"pim-service/internal/models"
	"pim-service/internal/services"
)

// CalculatedFieldsHandler validates and evaluates calculated-field formulas.
type CalculatedFieldsHandler struct {
	productsClient *clients.ProductsClient
}

func NewCalculatedFieldsHandler(productsClient *clients.ProductsClient) *CalculatedFieldsHandler {
	return &CalculatedFieldsHandler{productsClient: productsClient}
}

// ValidateFormulaRequest carries a formula to check against the grammar.
type ValidateFormulaRequest struct {
	Formula string `json:"formula" binding:"required"`
}

// ValidateFormula checks a formula without evaluating it against data
// POST /api/v1/calculated-fields/validate
func (h *CalculatedFieldsHandler) ValidateFormula(c *gin.Context) {
	var req ValidateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	if err := services.ValidateFormula(req.Formula); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"valid":   false,
			"reason":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   true,
	})
}

// EvaluateFormulaRequest evaluates a formula against an inline record or a
// product fetched from products-service.
type EvaluateFormulaRequest struct {
	Formula   string               `json:"formula" binding:"required"`
	Record    models.ProductRecord `json:"record"`
	ProductID string               `json:"productId"`
}

// EvaluateFormula renders a formula's display value. Failures yield the
// calculation-error sentinel in the value, never an error status.
// POST /api/v1/calculated-fields/evaluate
func (h *CalculatedFieldsHandler) EvaluateFormula(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req EvaluateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}

	record := req.Record
	if req.ProductID != "" && h.productsClient != nil {
		fetched, err := h.productsClient.GetProductRecord(c.Request.Context(), tenantID, req.ProductID)
		if err != nil {
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "PRODUCT_FETCH_FAILED",
					Message: err.Error(),
				},
			})
			return
		}
		record = fetched
	}
	if record == nil {
		record = models.ProductRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"value":   services.EvaluateFormulaDisplay(req.Formula, record),
	})
}
