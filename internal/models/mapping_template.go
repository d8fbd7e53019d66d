package models

import (
	"fmt"
	"time"
)

// Mapping associates retailer field keys with PIM attribute ids for one
// retailer. Cleared entries are removed outright, so the mapped count for a
// retailer is simply the key count.
type Mapping map[string]string

// Clone returns an independent copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FieldMappingTemplate is a reusable, named, multi-retailer bundle of mappings.
// Templates are shared by reference: a view template points at one by id and
// sees edits immediately, there is no copy-on-assign or versioning.
type FieldMappingTemplate struct {
	ID           EntityID           `json:"id"`
	TenantID     string             `json:"tenantId"`
	Name         string             `json:"name"`
	Category     string             `json:"category"`
	CategoryID   string             `json:"categoryId,omitempty"`
	Description  string             `json:"description,omitempty"`
	Retailers    []string           `json:"retailers"`
	Mappings     map[string]Mapping `json:"mappings"`
	CreatedAt    time.Time          `json:"createdAt"`
	LastModified time.Time          `json:"lastModified"`
}

// Validate checks the invariants for a mapping template.
func (t *FieldMappingTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("mapping template name is required")
	}
	if t.Category == "" {
		return fmt.Errorf("mapping template category is required")
	}
	if len(t.Retailers) == 0 {
		return fmt.Errorf("mapping template must list at least one retailer")
	}
	for retailerID := range t.Mappings {
		if !t.SupportsRetailer(retailerID) {
			return fmt.Errorf("mapping present for retailer %q not in template retailer list", retailerID)
		}
	}
	return nil
}

// SupportsRetailer reports whether the template lists the given retailer.
func (t *FieldMappingTemplate) SupportsRetailer(retailerID string) bool {
	for _, r := range t.Retailers {
		if r == retailerID {
			return true
		}
	}
	return false
}

// MappingFor returns the mapping for a retailer, allocating it on first use.
func (t *FieldMappingTemplate) MappingFor(retailerID string) Mapping {
	if t.Mappings == nil {
		t.Mappings = make(map[string]Mapping)
	}
	m, ok := t.Mappings[retailerID]
	if !ok {
		m = make(Mapping)
		t.Mappings[retailerID] = m
	}
	return m
}

// ProductRecord is a sparse attribute-id → value map owned by the external
// product-data collaborator. Values are primitives (string, number, boolean)
// and the record is read-only from this service's point of view.
type ProductRecord map[string]interface{}
