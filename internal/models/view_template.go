package models

import (
	"fmt"
	"time"
)

// DefaultFieldMapping points a view template at a field mapping template plus the
// subset of that template's retailers that is active for the view. The enabled
// set must always be a subset of the referenced template's retailer list.
type DefaultFieldMapping struct {
	TemplateID       string   `json:"templateId"`
	EnabledRetailers []string `json:"enabledRetailers"`
}

// ViewTemplate is a named, ordered collection of sections defining a product's
// editable schema for one tenant.
type ViewTemplate struct {
	ID                  EntityID             `json:"id"`
	TenantID            string               `json:"tenantId"`
	Name                string               `json:"name"`
	Description         string               `json:"description,omitempty"`
	Sections            []Section            `json:"sections"`
	IsDefault           bool                 `json:"isDefault"`
	DefaultFieldMapping *DefaultFieldMapping `json:"defaultFieldMapping,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	LastModified        time.Time            `json:"lastModified"`
}

// Validate checks the template and all nested sections.
func (t *ViewTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	for i := range t.Sections {
		if err := t.Sections[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FindSection returns the section with the given id, or nil.
func (t *ViewTemplate) FindSection(sectionID EntityID) *Section {
	for i := range t.Sections {
		if t.Sections[i].ID == sectionID {
			return &t.Sections[i]
		}
	}
	return nil
}

// DeletedAttribute identifies a persisted attribute removed while its section
// survived; both ids are persisted by construction.
type DeletedAttribute struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`
}

// Create payload: a brand-new template is submitted with all client-side ids
// stripped, the store assigns real ids on persist.

// CreateAttributePayload is one attribute in a template create request.
type CreateAttributePayload struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Order    int       `json:"order"`
	Options  []string  `json:"options,omitempty"`
}

// CreateSectionPayload is one section in a template create request.
type CreateSectionPayload struct {
	Title      string                   `json:"title"`
	Order      int                      `json:"order"`
	Attributes []CreateAttributePayload `json:"attributes"`
}

// CreateTemplatePayload is the wire shape for creating a view template.
type CreateTemplatePayload struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Sections    []CreateSectionPayload `json:"sections"`
}

// Update payload: persisted items carry their ids, new items omit them, and
// removals accumulated during the editing session travel in delete_data.

// UpdateAttributePayload is one attribute in a template update request.
type UpdateAttributePayload struct {
	ID       *string   `json:"id,omitempty"`
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Order    int       `json:"order"`
	Options  []string  `json:"options,omitempty"`
}

// UpdateSectionPayload is one section in a template update request.
type UpdateSectionPayload struct {
	ID         *string                  `json:"id,omitempty"`
	Title      string                   `json:"title"`
	Order      int                      `json:"order"`
	Attributes []UpdateAttributePayload `json:"attributes"`
}

// DeleteData carries the explicit deletions of a partial update.
type DeleteData struct {
	SectionIDs []string           `json:"section_ids,omitempty"`
	Attributes []DeletedAttribute `json:"attributes,omitempty"`
}

// UpdateTemplateData is the update_data block of an update request.
type UpdateTemplateData struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Sections    []UpdateSectionPayload `json:"sections"`
}

// UpdateTemplatePayload is the wire shape for updating an existing view template.
// DeleteFull is always false; full deletion goes through its own endpoint.
type UpdateTemplatePayload struct {
	TemplateID string             `json:"template_id"`
	DeleteFull bool               `json:"delete_full"`
	UpdateData UpdateTemplateData `json:"update_data"`
	DeleteData *DeleteData        `json:"delete_data,omitempty"`
}
