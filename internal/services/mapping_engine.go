package services

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"pim-service/internal/catalog"
	"pim-service/internal/models"
)

// RetailerMappingStatus is the advisory per-retailer state of a mapping
// session. No transition gates saving; "complete" only drives the checkmark
// shown against a retailer tab.
type RetailerMappingStatus string

const (
	StatusUnselected       RetailerMappingStatus = "unselected"
	StatusCategorySelected RetailerMappingStatus = "categorySelected"
	StatusMappedPartial    RetailerMappingStatus = "mappedPartial"
	StatusMappedComplete   RetailerMappingStatus = "mappedComplete"
)

// calcIDCounter backs calculated-field id generation. Calculated ids carry the
// calc_ prefix, are never persisted, and never enter deletion tracking.
var calcIDCounter atomic.Int64

// MappingEngine maintains, for one mapping template being edited against one
// view template, the association between each retailer's field catalog and the
// view's flattened attribute list.
type MappingEngine struct {
	mu         sync.Mutex
	catalog    *catalog.Catalog
	template   *models.FieldMappingTemplate
	view       *models.ViewTemplate
	categories map[string]string
	calculated []models.Attribute
}

// NewMappingEngine creates an engine over a mapping template and the view
// template whose attributes are the mapping targets.
func NewMappingEngine(cat *catalog.Catalog, template *models.FieldMappingTemplate, view *models.ViewTemplate) *MappingEngine {
	return &MappingEngine{
		catalog:    cat,
		template:   template,
		view:       view,
		categories: make(map[string]string),
	}
}

// Template returns the mapping template under edit.
func (e *MappingEngine) Template() *models.FieldMappingTemplate {
	return e.template
}

// FlattenFields returns the ordered concatenation of every section's
// attributes plus any session-local calculated fields: the candidate set of
// mapping targets. Pure and deterministic.
func (e *MappingEngine) FlattenFields() []models.Attribute {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flattenLocked()
}

func (e *MappingEngine) flattenLocked() []models.Attribute {
	var out []models.Attribute
	for _, section := range e.view.Sections {
		out = append(out, section.Attributes...)
	}
	out = append(out, e.calculated...)
	return out
}

// SetCategory selects the catalog category for a retailer tab.
func (e *MappingEngine) SetCategory(retailerID, categoryID string) error {
	if !e.template.SupportsRetailer(retailerID) {
		return fmt.Errorf("retailer %q is not part of this mapping template", retailerID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.categories[retailerID] = categoryID
	return nil
}

// SetMapping assigns or clears one entry of a retailer's mapping. An empty
// attribute id clears: the key is removed outright rather than stored empty,
// so the mapped count for a retailer is its key count.
func (e *MappingEngine) SetMapping(retailerID, retailerFieldID, pimAttributeID string) error {
	if !e.template.SupportsRetailer(retailerID) {
		return fmt.Errorf("retailer %q is not part of this mapping template", retailerID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	mapping := e.template.MappingFor(retailerID)
	if pimAttributeID == "" {
		delete(mapping, retailerFieldID)
		return nil
	}
	mapping[retailerFieldID] = pimAttributeID
	return nil
}

// AutoMap walks the retailer's catalog fields in declared order and maps each
// to the first PIM attribute whose normalized name is contained in, or
// contains, the field's normalized label. Fields with no match keep whatever
// entry they already had. Substring containment is the whole heuristic; there
// is no scoring, and the result is deterministic for a fixed catalog and
// attribute list.
func (e *MappingEngine) AutoMap(retailerID string) (int, error) {
	if !e.template.SupportsRetailer(retailerID) {
		return 0, fmt.Errorf("retailer %q is not part of this mapping template", retailerID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fields, err := e.catalog.Fields(retailerID, e.categories[retailerID])
	if err != nil {
		return 0, err
	}
	candidates := e.flattenLocked()
	mapping := e.template.MappingFor(retailerID)

	matched := 0
	for _, field := range fields {
		label := normalizeFieldName(field.Label)
		if label == "" {
			continue
		}
		for _, attr := range candidates {
			name := normalizeFieldName(attr.Name)
			if name == "" {
				continue
			}
			if strings.Contains(label, name) || strings.Contains(name, label) {
				mapping[field.ID] = attr.ID.String()
				matched++
				break
			}
		}
	}
	return matched, nil
}

// MappedTargets returns every retailer field key currently pointing at the
// given PIM attribute, in the retailer's catalog field order. The duplicate
// guard built on this is advisory: the mapping itself permits two fields to
// share a target.
func (e *MappingEngine) MappedTargets(retailerID, pimAttributeID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	mapping := e.template.Mappings[retailerID]
	if len(mapping) == 0 {
		return nil
	}
	fields, err := e.catalog.Fields(retailerID, e.categories[retailerID])
	if err != nil {
		return nil
	}
	var out []string
	for _, field := range fields {
		if mapping[field.ID] == pimAttributeID {
			out = append(out, field.ID)
		}
	}
	// Entries for fields outside the active category still count.
	for key, target := range mapping {
		if target != pimAttributeID {
			continue
		}
		seen := false
		for _, id := range out {
			if id == key {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, key)
		}
	}
	return out
}

// CreateCalculatedField registers a session-local derived attribute. The
// formula must parse against the calculated-field grammar; it is evaluated
// lazily against product records, never stored as a value.
func (e *MappingEngine) CreateCalculatedField(name, formula string) (*models.Attribute, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("calculated field name is required")
	}
	if err := ValidateFormula(formula); err != nil {
		return nil, fmt.Errorf("invalid formula: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	attr := models.Attribute{
		ID:            models.ScopedID(fmt.Sprintf("calc_%d", calcIDCounter.Add(1))),
		Name:          name,
		Type:          models.FieldNumber,
		IsCalculative: true,
		Formula:       formula,
	}
	e.calculated = append(e.calculated, attr)
	return &e.calculated[len(e.calculated)-1], nil
}

// EvaluateCalculatedField renders a calculated attribute's value for a product
// record, substituting the calculation-error sentinel on any failure.
func (e *MappingEngine) EvaluateCalculatedField(attr *models.Attribute, record models.ProductRecord) string {
	if !attr.IsCalculative {
		return CalculationError
	}
	return EvaluateFormulaDisplay(attr.Formula, record)
}

// Status reports the advisory state of one retailer tab.
func (e *MappingEngine) Status(retailerID string) RetailerMappingStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	categoryID, categoryChosen := e.categories[retailerID]
	if len(e.catalog.Categories(retailerID)) > 0 && !categoryChosen {
		return StatusUnselected
	}
	fields, err := e.catalog.Fields(retailerID, categoryID)
	if err != nil {
		return StatusUnselected
	}
	mapping := e.template.Mappings[retailerID]
	if len(mapping) == 0 {
		return StatusCategorySelected
	}
	for _, field := range fields {
		if !field.Required {
			continue
		}
		if mapping[field.ID] == "" {
			return StatusMappedPartial
		}
	}
	return StatusMappedComplete
}

// normalizeFieldName casefolds and strips non-alphanumeric characters so that
// "Product Title" and "product_title" compare equal.
func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
