package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ViewTemplateRecord is the persisted form of a view template. Sections are
// stored as a JSONB document; the in-memory model is the unit of behavior and
// the record is only a storage projection of it.
type ViewTemplateRecord struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID            string         `gorm:"type:varchar(255);not null;index:idx_view_templates_tenant" json:"tenantId"`
	Name                string         `gorm:"type:varchar(255);not null" json:"name"`
	Description         string         `gorm:"type:text" json:"description,omitempty"`
	Sections            datatypes.JSON `gorm:"type:jsonb;not null" json:"sections"`
	IsDefault           bool           `gorm:"default:false" json:"isDefault"`
	DefaultFieldMapping datatypes.JSON `gorm:"type:jsonb" json:"defaultFieldMapping,omitempty"`
	CreatedAt           time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"lastModified"`
}

// TableName specifies the table name for ViewTemplateRecord
func (ViewTemplateRecord) TableName() string {
	return "view_templates"
}

// persistedSection mirrors Section with storage ids; every stored section and
// attribute carries a persisted id, transient ids never reach the database.
type persistedSection struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	Order      int                  `json:"order"`
	Attributes []persistedAttribute `json:"attributes"`
}

type persistedAttribute struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Order    int       `json:"order"`
	Options  []string  `json:"options,omitempty"`
}

// ToModel inflates the record into the in-memory template, normalizing the type
// vocabulary on the way in.
func (r *ViewTemplateRecord) ToModel() (*ViewTemplate, error) {
	var stored []persistedSection
	if len(r.Sections) > 0 {
		if err := json.Unmarshal(r.Sections, &stored); err != nil {
			return nil, fmt.Errorf("template %s: malformed sections document: %w", r.ID, err)
		}
	}

	sections := make([]Section, 0, len(stored))
	for _, ps := range stored {
		attrs := make([]Attribute, 0, len(ps.Attributes))
		for _, pa := range ps.Attributes {
			attrs = append(attrs, Attribute{
				ID:       SavedID(pa.ID),
				Name:     pa.Name,
				Type:     NormalizeFieldType(string(pa.Type)),
				Required: pa.Required,
				Order:    pa.Order,
				Options:  pa.Options,
			})
		}
		sections = append(sections, Section{
			ID:         SavedID(ps.ID),
			Title:      ps.Title,
			Order:      ps.Order,
			Attributes: attrs,
		})
	}

	tpl := &ViewTemplate{
		ID:           SavedID(r.ID.String()),
		TenantID:     r.TenantID,
		Name:         r.Name,
		Description:  r.Description,
		Sections:     sections,
		IsDefault:    r.IsDefault,
		CreatedAt:    r.CreatedAt,
		LastModified: r.UpdatedAt,
	}

	if len(r.DefaultFieldMapping) > 0 {
		var dfm DefaultFieldMapping
		if err := json.Unmarshal(r.DefaultFieldMapping, &dfm); err != nil {
			return nil, fmt.Errorf("template %s: malformed default field mapping: %w", r.ID, err)
		}
		if dfm.TemplateID != "" {
			tpl.DefaultFieldMapping = &dfm
		}
	}

	// Dropdown invariant holds after every read regardless of stored shape.
	for i := range tpl.Sections {
		for j := range tpl.Sections[i].Attributes {
			a := &tpl.Sections[i].Attributes[j]
			if a.Type == FieldDropdown && a.Options == nil {
				a.Options = []string{}
			}
		}
	}

	return tpl, nil
}

// SectionsDocument serializes sections for storage, minting persisted ids for
// any transient entries. The returned template mirror reports the ids assigned.
func SectionsDocument(sections []Section) (datatypes.JSON, []Section, error) {
	stored := make([]persistedSection, 0, len(sections))
	assigned := make([]Section, len(sections))
	copy(assigned, sections)

	for i, s := range assigned {
		if !s.ID.Persisted() {
			s.ID = SavedID(uuid.New().String())
		}
		attrs := make([]persistedAttribute, 0, len(s.Attributes))
		outAttrs := make([]Attribute, len(s.Attributes))
		copy(outAttrs, s.Attributes)
		for j, a := range outAttrs {
			if !a.ID.Persisted() {
				a.ID = SavedID(uuid.New().String())
			}
			options := a.Options
			if a.Type != FieldDropdown && len(options) == 0 {
				options = nil
			}
			attrs = append(attrs, persistedAttribute{
				ID:       a.ID.Saved(),
				Name:     a.Name,
				Type:     a.Type,
				Required: a.Required,
				Order:    a.Order,
				Options:  options,
			})
			outAttrs[j] = a
		}
		s.Attributes = outAttrs
		stored = append(stored, persistedSection{
			ID:         s.ID.Saved(),
			Title:      s.Title,
			Order:      s.Order,
			Attributes: attrs,
		})
		assigned[i] = s
	}

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, nil, err
	}
	return datatypes.JSON(doc), assigned, nil
}

// FieldMappingTemplateRecord is the persisted form of a field mapping template.
type FieldMappingTemplateRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    string         `gorm:"type:varchar(255);not null;index:idx_fm_templates_tenant" json:"tenantId"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Category    string         `gorm:"type:varchar(255);not null" json:"category"`
	CategoryID  string         `gorm:"type:varchar(255)" json:"categoryId,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Retailers   datatypes.JSON `gorm:"type:jsonb;not null" json:"retailers"`
	Mappings    datatypes.JSON `gorm:"type:jsonb;not null" json:"mappings"`
	CreatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"lastModified"`
}

// TableName specifies the table name for FieldMappingTemplateRecord
func (FieldMappingTemplateRecord) TableName() string {
	return "field_mapping_templates"
}

// ToModel inflates the record into the in-memory mapping template.
func (r *FieldMappingTemplateRecord) ToModel() (*FieldMappingTemplate, error) {
	var retailers []string
	if len(r.Retailers) > 0 {
		if err := json.Unmarshal(r.Retailers, &retailers); err != nil {
			return nil, fmt.Errorf("mapping template %s: malformed retailers: %w", r.ID, err)
		}
	}
	mappings := make(map[string]Mapping)
	if len(r.Mappings) > 0 {
		if err := json.Unmarshal(r.Mappings, &mappings); err != nil {
			return nil, fmt.Errorf("mapping template %s: malformed mappings: %w", r.ID, err)
		}
	}
	return &FieldMappingTemplate{
		ID:           SavedID(r.ID.String()),
		TenantID:     r.TenantID,
		Name:         r.Name,
		Category:     r.Category,
		CategoryID:   r.CategoryID,
		Description:  r.Description,
		Retailers:    retailers,
		Mappings:     mappings,
		CreatedAt:    r.CreatedAt,
		LastModified: r.UpdatedAt,
	}, nil
}

// FromMappingTemplate projects the in-memory template onto a storage record.
func FromMappingTemplate(t *FieldMappingTemplate) (*FieldMappingTemplateRecord, error) {
	retailers, err := json.Marshal(t.Retailers)
	if err != nil {
		return nil, err
	}
	mappings := t.Mappings
	if mappings == nil {
		mappings = map[string]Mapping{}
	}
	doc, err := json.Marshal(mappings)
	if err != nil {
		return nil, err
	}
	rec := &FieldMappingTemplateRecord{
		TenantID:    t.TenantID,
		Name:        t.Name,
		Category:    t.Category,
		CategoryID:  t.CategoryID,
		Description: t.Description,
		Retailers:   datatypes.JSON(retailers),
		Mappings:    datatypes.JSON(doc),
	}
	if t.ID.Persisted() {
		id, err := uuid.Parse(t.ID.Saved())
		if err != nil {
			return nil, fmt.Errorf("mapping template id %q is not a uuid: %w", t.ID.Saved(), err)
		}
		rec.ID = id
	}
	return rec, nil
}
