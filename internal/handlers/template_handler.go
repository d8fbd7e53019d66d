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

// TemplateHandler exposes view template CRUD plus clone, default selection and
// picklist option edits. All save and publish semantics live in the template
// service; the handler only translates HTTP.
type TemplateHandler struct {
	svc      *services.TemplateService
	picklist *services.PicklistEditor
}

func NewTemplateHandler(svc *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{
		svc:      svc,
		picklist: services.NewPicklistEditor(),
	}
}

// CreateTemplate creates a new view template
// POST /api/v1/view-templates
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var payload models.CreateTemplatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	if payload.Name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Template name is required",
				Field:   "name",
			},
		})
		return
	}

	template, err := h.svc.Create(c.Request.Context(), tenantID, &payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
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

// UpdateTemplate applies a partial update to an existing template
// PUT /api/v1/view-templates/:id
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	templateID := c.Param("id")

	var payload models.UpdateTemplatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: err.Error(),
			},
		})
		return
	}
	if payload.TemplateID == "" {
		payload.TemplateID = templateID
	}
	if payload.TemplateID != templateID {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "Body template_id does not match path id",
				Field:   "template_id",
			},
		})
		return
	}
	// Full deletion has its own endpoint; updates never carry delete_full.
	if payload.DeleteFull {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "delete_full is not supported on update; use DELETE",
				Field:   "delete_full",
			},
		})
		return
	}

	template, err := h.svc.Update(c.Request.Context(), tenantID, &payload)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: template})
}

// GetTemplate returns one view template
// GET /api/v1/view-templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	template, err := h.svc.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: template})
}

// ListTemplates returns all view templates for the tenant
// GET /api/v1/view-templates
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	templates, err := h.svc.List(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: templates})
}

// DeleteTemplate removes a view template entirely
// DELETE /api/v1/view-templates/:id
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	templateID := c.Param("id")

	if err := h.svc.Delete(c.Request.Context(), tenantID, templateID); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Template deleted"})
}

// CloneTemplateRequest names the copy created from an existing template.
type CloneTemplateRequest struct {
	Name string `json:"name" binding:"required"`
}

// CloneTemplate copies a template's sections into a brand-new template. Every
// section and attribute gets a fresh id; nothing is shared with the source.
// POST /api/v1/view-templates/:id/clone
func (h *TemplateHandler) CloneTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req CloneTemplateRequest
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

	clone, err := h.svc.Clone(c.Request.Context(), tenantID, c.Param("id"), req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: clone})
}

// SetDefaultTemplate marks one template as the tenant default
// POST /api/v1/view-templates/:id/default
func (h *TemplateHandler) SetDefaultTemplate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	templateID := c.Param("id")

	if err := h.svc.SetDefault(c.Request.Context(), tenantID, templateID); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Default template updated"})
}

// UpdateOptionsRequest carries the final option list of a picklist dialog.
type UpdateOptionsRequest struct {
	Options []string `json:"options" binding:"required"`
}

// UpdateAttributeOptions commits a picklist dialog's option list to a dropdown
// attribute. The list is staged through the picklist editor and merged into the
// attribute in one editing session save, so a failed persist changes nothing.
// PUT /api/v1/view-templates/:id/sections/:sectionId/attributes/:attributeId/options
func (h *TemplateHandler) UpdateAttributeOptions(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req UpdateOptionsRequest
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

	session, err := h.svc.OpenSession(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, templateNotFoundResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	sectionID := models.SavedID(c.Param("sectionId"))
	attributeID := models.SavedID(c.Param("attributeId"))
	h.picklist.Open(attributeID, req.Options)
	if err := h.picklist.Commit(session, sectionID, attributeID); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ATTRIBUTE_NOT_FOUND",
				Message: err.Error(),
			},
		})
		return
	}

	saved, err := h.svc.Save(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: saved})
}

func templateNotFoundResponse() models.ErrorResponse {
	return models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "TEMPLATE_NOT_FOUND",
			Message: "View template not found",
		},
	}
}
