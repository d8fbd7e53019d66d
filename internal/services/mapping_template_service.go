package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"pim-service/internal/catalog"
	"pim-service/internal/models"
)

// MappingTemplateRepository is the persistence boundary for field mapping
// templates. The store is the single owner of each template: callers always go
// through it by id, which is what makes shared-by-reference semantics a
// deliberate lookup rather than accidental aliasing.
type MappingTemplateRepository interface {
	Create(ctx context.Context, template *models.FieldMappingTemplate) (*models.FieldMappingTemplate, error)
	Update(ctx context.Context, template *models.FieldMappingTemplate) (*models.FieldMappingTemplate, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.FieldMappingTemplate, error)
	List(ctx context.Context, tenantID string) ([]models.FieldMappingTemplate, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// CreateMappingTemplateRequest is the input for creating a mapping template.
type CreateMappingTemplateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	CategoryID  string   `json:"categoryId"`
	Description string   `json:"description"`
	Retailers   []string `json:"retailers" binding:"required"`
}

// MappingTemplateService owns CRUD over reusable multi-retailer mapping
// templates and their assignment onto view templates.
type MappingTemplateService struct {
	repo         MappingTemplateRepository
	templateRepo TemplateRepository
	catalog      *catalog.Catalog
	logger       *logrus.Entry
}

// NewMappingTemplateService creates a new mapping template service.
func NewMappingTemplateService(repo MappingTemplateRepository, templateRepo TemplateRepository, cat *catalog.Catalog, logger *logrus.Logger) *MappingTemplateService {
	return &MappingTemplateService{
		repo:         repo,
		templateRepo: templateRepo,
		catalog:      cat,
		logger:       logger.WithField("component", "mapping-template-service"),
	}
}

// CreateTemplate allocates a new mapping template with an empty mappings table
// for the given retailer list. Unknown retailers are rejected before any
// persistence happens.
func (svc *MappingTemplateService) CreateTemplate(ctx context.Context, tenantID string, req *CreateMappingTemplateRequest) (*models.FieldMappingTemplate, error) {
	for _, retailerID := range req.Retailers {
		if _, err := svc.catalog.Fields(retailerID, ""); err != nil {
			return nil, err
		}
	}
	template := &models.FieldMappingTemplate{
		ID:          models.NewLocalID(),
		TenantID:    tenantID,
		Name:        req.Name,
		Category:    req.Category,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Retailers:   req.Retailers,
		Mappings:    map[string]models.Mapping{},
	}
	if err := template.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.Create(ctx, template)
}

// UpdateTemplate persists edits to a template. Because views reference
// templates by id, the change is visible to every referencing view immediately.
func (svc *MappingTemplateService) UpdateTemplate(ctx context.Context, template *models.FieldMappingTemplate) (*models.FieldMappingTemplate, error) {
	if err := template.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.Update(ctx, template)
}

// Get returns one mapping template by id.
func (svc *MappingTemplateService) Get(ctx context.Context, tenantID, id string) (*models.FieldMappingTemplate, error) {
	return svc.repo.GetByID(ctx, tenantID, id)
}

// List returns all mapping templates for a tenant.
func (svc *MappingTemplateService) List(ctx context.Context, tenantID string) ([]models.FieldMappingTemplate, error) {
	return svc.repo.List(ctx, tenantID)
}

// Delete removes a mapping template.
func (svc *MappingTemplateService) Delete(ctx context.Context, tenantID, id string) error {
	return svc.repo.Delete(ctx, tenantID, id)
}

// SetMappingEntry assigns or clears one retailer field entry and persists the
// template. An empty attribute id clears the entry.
func (svc *MappingTemplateService) SetMappingEntry(ctx context.Context, tenantID, templateID, retailerID, retailerFieldID, pimAttributeID string) (*models.FieldMappingTemplate, error) {
	template, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if !template.SupportsRetailer(retailerID) {
		return nil, fmt.Errorf("retailer %q is not part of mapping template %q", retailerID, template.Name)
	}
	mapping := template.MappingFor(retailerID)
	if pimAttributeID == "" {
		delete(mapping, retailerFieldID)
	} else {
		mapping[retailerFieldID] = pimAttributeID
	}
	return svc.repo.Update(ctx, template)
}

// AutoMapRetailer runs the name-similarity heuristic for one retailer of a
// mapping template against a view template's attributes and persists the
// result. Returns the updated template and how many fields matched.
func (svc *MappingTemplateService) AutoMapRetailer(ctx context.Context, tenantID, templateID, viewTemplateID, retailerID, categoryID string) (*models.FieldMappingTemplate, int, error) {
	template, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, 0, err
	}
	view, err := svc.templateRepo.GetByID(ctx, tenantID, viewTemplateID)
	if err != nil {
		return nil, 0, err
	}

	engine := NewMappingEngine(svc.catalog, template, view)
	if categoryID != "" {
		if err := engine.SetCategory(retailerID, categoryID); err != nil {
			return nil, 0, err
		}
	}
	matched, err := engine.AutoMap(retailerID)
	if err != nil {
		return nil, 0, err
	}
	saved, err := svc.repo.Update(ctx, template)
	if err != nil {
		return nil, 0, err
	}
	return saved, matched, nil
}

// RetailerStatuses reports the advisory mapping state of every retailer in a
// template, evaluated against one view template. The category hint applies to
// the single retailer named; other retailers report against their full catalog.
func (svc *MappingTemplateService) RetailerStatuses(ctx context.Context, tenantID, templateID, viewTemplateID, retailerID, categoryID string) (map[string]RetailerMappingStatus, error) {
	template, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	view, err := svc.templateRepo.GetByID(ctx, tenantID, viewTemplateID)
	if err != nil {
		return nil, err
	}

	engine := NewMappingEngine(svc.catalog, template, view)
	if retailerID != "" && categoryID != "" {
		if err := engine.SetCategory(retailerID, categoryID); err != nil {
			return nil, err
		}
	}
	statuses := make(map[string]RetailerMappingStatus, len(template.Retailers))
	for _, r := range template.Retailers {
		statuses[r] = engine.Status(r)
	}
	return statuses, nil
}

// MappedTargets lists the retailer field keys of one retailer currently mapped
// to a given view attribute. Used by the duplicate-mapping warning in the
// editor; the result is advisory only.
func (svc *MappingTemplateService) MappedTargets(ctx context.Context, tenantID, templateID, viewTemplateID, retailerID, categoryID, attributeID string) ([]string, error) {
	template, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	view, err := svc.templateRepo.GetByID(ctx, tenantID, viewTemplateID)
	if err != nil {
		return nil, err
	}

	engine := NewMappingEngine(svc.catalog, template, view)
	if categoryID != "" {
		if err := engine.SetCategory(retailerID, categoryID); err != nil {
			return nil, err
		}
	}
	return engine.MappedTargets(retailerID, attributeID), nil
}

// AssignToView points a view template at a mapping template with a retailer
// subset. An enabled retailer missing from the mapping template's retailer
// list is a hard rejection, never silently clamped.
func (svc *MappingTemplateService) AssignToView(ctx context.Context, tenantID, viewTemplateID, templateID string, enabledRetailers []string) error {
	template, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return err
	}
	for _, retailerID := range enabledRetailers {
		if !template.SupportsRetailer(retailerID) {
			return fmt.Errorf("retailer %q is not part of mapping template %q", retailerID, template.Name)
		}
	}
	dfm := &models.DefaultFieldMapping{
		TemplateID:       templateID,
		EnabledRetailers: enabledRetailers,
	}
	return svc.templateRepo.SetDefaultFieldMapping(ctx, tenantID, viewTemplateID, dfm)
}

// UnassignFromView clears a view template's default field mapping.
func (svc *MappingTemplateService) UnassignFromView(ctx context.Context, tenantID, viewTemplateID string) error {
	return svc.templateRepo.SetDefaultFieldMapping(ctx, tenantID, viewTemplateID, nil)
}

// EffectiveRetailers returns the retailer subset active for a view template,
// empty when no mapping template is assigned. Product creation under the view
// pre-selects exactly this set.
func EffectiveRetailers(view *models.ViewTemplate) []string {
	if view == nil || view.DefaultFieldMapping == nil {
		return []string{}
	}
	out := make([]string, len(view.DefaultFieldMapping.EnabledRetailers))
	copy(out, view.DefaultFieldMapping.EnabledRetailers)
	return out
}
