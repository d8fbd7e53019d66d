package models

// Supported retailer channel identifiers.
const (
	RetailerAmazon  = "amazon"
	RetailerWalmart = "walmart"
	RetailerTarget  = "target"
	RetailerShopify = "shopify"
	RetailerEbay    = "ebay"
	RetailerEtsy    = "etsy"
)

// RetailerField is a single field in a retailer's listing schema, optionally
// scoped to a category.
type RetailerField struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// RetailerFieldSet holds a retailer's fields in declared order, with optional
// per-category variants. Order is significant: auto-mapping iterates fields in
// exactly this order, so the sets are slices and never maps.
type RetailerFieldSet struct {
	RetailerID string                     `json:"retailerId"`
	Fields     []RetailerField            `json:"fields"`
	Categories map[string][]RetailerField `json:"categories,omitempty"`
}

// FieldsFor returns the field list for a category, falling back to the
// retailer-wide default set when the category has no dedicated variant.
func (s *RetailerFieldSet) FieldsFor(categoryID string) []RetailerField {
	if categoryID != "" && s.Categories != nil {
		if fields, ok := s.Categories[categoryID]; ok {
			return fields
		}
	}
	return s.Fields
}
