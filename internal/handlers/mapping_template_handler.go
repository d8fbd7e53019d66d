package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"pim-service/internal/middleware"
	"pim-service/internal/models"
	"pim-service/internal/repository"
	"pim-service/internal/services"
)

// MappingTemplateHandler exposes field mapping template CRUD, per-retailer
// mapping edits, auto-mapping and assignment onto view templates.
type MappingTemplateHandler struct {
	svc *services.MappingTemplateService
}

func NewMappingTemplateHandler(svc *services.MappingTemplateService) *MappingTemplateHandler {
	return &MappingTemplateHandler{svc: svc}
}

// CreateTemplate creates a new field mapping template
// POST /api/v1/field-mapping-templates
func (h *MappingTemplateHandler) CreateTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req services.CreateMappingTemplateRequest
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

	template, err := h.svc.CreateTemplate(c.Request.Context(), tenantID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: template})
}

// UpdateMappingTemplateRequest carries editable template fields. Mappings are
// edited through the per-retailer endpoints, not here.
type UpdateMappingTemplateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	CategoryID  string   `json:"categoryId"`
	Description string   `json:"description"`
	Retailers   []string `json:"retailers" binding:"required"`
}

// UpdateTemplate edits a template's metadata and retailer list
// PUT /api/v1/field-mapping-templates/:id
func (h *MappingTemplateHandler) UpdateTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req UpdateMappingTemplateRequest
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

	template, err := h.svc.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	template.Name = req.Name
	template.Category = req.Category
	template.CategoryID = req.CategoryID
	template.Description = req.Description
	template.Retailers = req.Retailers

	saved, err := h.svc.UpdateTemplate(c.Request.Context(), template)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: saved})
}

// GetTemplate returns one field mapping template
// GET /api/v1/field-mapping-templates/:id
func (h *MappingTemplateHandler) GetTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	template, err := h.svc.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: template})
}

// ListTemplates returns all field mapping templates for the tenant
// GET /api/v1/field-mapping-templates
func (h *MappingTemplateHandler) ListTemplates(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	templates, err := h.svc.List(c.Request.Context(), tenantID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: templates})
}

// DeleteTemplate removes a field mapping template
// DELETE /api/v1/field-mapping-templates/:id
func (h *MappingTemplateHandler) DeleteTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	if err := h.svc.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Mapping template deleted"})
}

// SetMappingEntryRequest assigns or clears one retailer field entry.
type SetMappingEntryRequest struct {
	RetailerFieldID string `json:"retailerFieldId" binding:"required"`
	PimAttributeID  string `json:"pimAttributeId"`
}

// SetMappingEntry assigns one retailer field to a PIM attribute, or clears the
// entry when pimAttributeId is empty
// PUT /api/v1/field-mapping-templates/:id/mappings/:retailerId
func (h *MappingTemplateHandler) SetMappingEntry(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req SetMappingEntryRequest
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

	template, err := h.svc.SetMappingEntry(c.Request.Context(), tenantID, c.Param("id"), c.Param("retailerId"), req.RetailerFieldID, req.PimAttributeID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: template})
}

// AutoMapRequest selects the view template and optional category to map against.
type AutoMapRequest struct {
	ViewTemplateID string `json:"viewTemplateId" binding:"required"`
	CategoryID     string `json:"categoryId"`
}

// AutoMap runs the name-similarity heuristic for one retailer
// POST /api/v1/field-mapping-templates/:id/mappings/:retailerId/auto-map
func (h *MappingTemplateHandler) AutoMap(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req AutoMapRequest
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

	template, matched, err := h.svc.AutoMapRetailer(c.Request.Context(), tenantID, c.Param("id"), req.ViewTemplateID, c.Param("retailerId"), req.CategoryID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         template,
		"matchedCount": matched,
	})
}

// GetStatuses reports the advisory mapping state per retailer
// GET /api/v1/field-mapping-templates/:id/status?viewTemplateId=&retailerId=&categoryId=
func (h *MappingTemplateHandler) GetStatuses(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	viewTemplateID := c.Query("viewTemplateId")
	if viewTemplateID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "viewTemplateId query parameter is required",
				Field:   "viewTemplateId",
			},
		})
		return
	}

	statuses, err := h.svc.RetailerStatuses(c.Request.Context(), tenantID, c.Param("id"), viewTemplateID, c.Query("retailerId"), c.Query("categoryId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: statuses})
}

// GetMappedTargets lists the retailer field keys mapped to one view attribute
// GET /api/v1/field-mapping-templates/:id/mappings/:retailerId/targets?viewTemplateId=&attributeId=&categoryId=
func (h *MappingTemplateHandler) GetMappedTargets(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	viewTemplateID := c.Query("viewTemplateId")
	attributeID := c.Query("attributeId")
	if viewTemplateID == "" || attributeID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "viewTemplateId and attributeId query parameters are required",
			},
		})
		return
	}

	targets, err := h.svc.MappedTargets(c.Request.Context(), tenantID, c.Param("id"), viewTemplateID, c.Param("retailerId"), c.Query("categoryId"), attributeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if targets == nil {
		targets = []string{}
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: targets})
}

// AssignToViewRequest binds a mapping template to a view with a retailer subset.
type AssignToViewRequest struct {
	TemplateID       string   `json:"templateId" binding:"required"`
	EnabledRetailers []string `json:"enabledRetailers" binding:"required"`
}

// AssignToView points a view template at a mapping template
// POST /api/v1/view-templates/:id/field-mapping
func (h *MappingTemplateHandler) AssignToView(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req AssignToViewRequest
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

	if err := h.svc.AssignToView(c.Request.Context(), tenantID, c.Param("id"), req.TemplateID, req.EnabledRetailers); err != nil {
		if errors.Is(err, repository.ErrMappingTemplateNotFound) || errors.Is(err, repository.ErrTemplateNotFound) {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ASSIGN_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Field mapping assigned"})
}

// UnassignFromView clears a view template's default field mapping
// DELETE /api/v1/view-templates/:id/field-mapping
func (h *MappingTemplateHandler) UnassignFromView(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	if err := h.svc.UnassignFromView(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Field mapping removed"})
}

func (h *MappingTemplateHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrMappingTemplateNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "MAPPING_TEMPLATE_NOT_FOUND",
				Message: "Field mapping template not found",
			},
		})
	case errors.Is(err, repository.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, templateNotFoundResponse())
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INTERNAL_ERROR",
				Message: err.Error(),
			},
		})
	}
}
