package catalog

import (
	"fmt"

	"pim-service/internal/models"
)

// Catalog holds the per-retailer field schemas the mapping engine matches
// against. Field sets are static, supplied at construction, and kept in
// declared order because auto-mapping resolves ties by catalog position.
type Catalog struct {
	retailers []string
	sets      map[string]*models.RetailerFieldSet
}

// New builds a catalog from the given field sets, preserving their order.
func New(sets ...*models.RetailerFieldSet) *Catalog {
	c := &Catalog{sets: make(map[string]*models.RetailerFieldSet, len(sets))}
	for _, s := range sets {
		c.retailers = append(c.retailers, s.RetailerID)
		c.sets[s.RetailerID] = s
	}
	return c
}

// Retailers returns the retailer ids in declared order.
func (c *Catalog) Retailers() []string {
	out := make([]string, len(c.retailers))
	copy(out, c.retailers)
	return out
}

// Fields returns the field list for a retailer and optional category, in
// declared order. Unknown retailers are an error; unknown categories fall back
// to the retailer-wide default set.
func (c *Catalog) Fields(retailerID, categoryID string) ([]models.RetailerField, error) {
	set, ok := c.sets[retailerID]
	if !ok {
		return nil, fmt.Errorf("unknown retailer %q", retailerID)
	}
	return set.FieldsFor(categoryID), nil
}

// Categories returns the category ids a retailer defines dedicated field sets
// for. Empty for retailers with a single flat schema.
func (c *Catalog) Categories(retailerID string) []string {
	set, ok := c.sets[retailerID]
	if !ok || set.Categories == nil {
		return nil
	}
	out := make([]string, 0, len(set.Categories))
	for id := range set.Categories {
		out = append(out, id)
	}
	return out
}

// Default returns the built-in catalog for the supported retail channels.
func Default() *Catalog {
	return New(
		&models.RetailerFieldSet{
			RetailerID: models.RetailerAmazon,
			Fields: []models.RetailerField{
				{ID: "title", Label: "Product Title", Required: true},
				{ID: "brand", Label: "Brand Name", Required: true},
				{ID: "bulletPoints", Label: "Bullet Points", Required: true, Description: "Up to five key feature bullets"},
				{ID: "description", Label: "Product Description", Required: true},
				{ID: "price", Label: "Standard Price", Required: true},
				{ID: "sku", Label: "Seller SKU", Required: true},
				{ID: "searchTerms", Label: "Search Terms"},
				{ID: "mainImageUrl", Label: "Main Image URL", Required: true},
			},
			Categories: map[string][]models.RetailerField{
				"apparel": {
					{ID: "title", Label: "Product Title", Required: true},
					{ID: "brand", Label: "Brand Name", Required: true},
					{ID: "size", Label: "Size", Required: true},
					{ID: "color", Label: "Color", Required: true},
					{ID: "material", Label: "Material Type"},
					{ID: "price", Label: "Standard Price", Required: true},
					{ID: "sku", Label: "Seller SKU", Required: true},
				},
				"electronics": {
					{ID: "title", Label: "Product Title", Required: true},
					{ID: "brand", Label: "Brand Name", Required: true},
					{ID: "modelNumber", Label: "Model Number", Required: true},
					{ID: "warranty", Label: "Warranty Description"},
					{ID: "price", Label: "Standard Price", Required: true},
					{ID: "sku", Label: "Seller SKU", Required: true},
				},
			},
		},
		&models.RetailerFieldSet{
			RetailerID: models.RetailerWalmart,
			Fields: []models.RetailerField{
				{ID: "productName", Label: "Product Name", Required: true},
				{ID: "brand", Label: "Brand", Required: true},
				{ID: "shortDescription", Label: "Short Description", Required: true},
				{ID: "longDescription", Label: "Long Description"},
				{ID: "price", Label: "Price", Required: true},
				{ID: "sku", Label: "SKU", Required: true},
				{ID: "shelfDescription", Label: "Shelf Description"},
			},
			Categories: map[string][]models.RetailerField{
				"grocery": {
					{ID: "productName", Label: "Product Name", Required: true},
					{ID: "brand", Label: "Brand", Required: true},
					{ID: "ingredients", Label: "Ingredients", Required: true},
					{ID: "netContent", Label: "Net Content", Required: true},
					{ID: "price", Label: "Price", Required: true},
					{ID: "sku", Label: "SKU", Required: true},
				},
			},
		},
		&models.RetailerFieldSet{
			RetailerID: models.RetailerTarget,
			Fields: []models.RetailerField{
				{ID: "itemTitle", Label: "Item Title", Required: true},
				{ID: "brand", Label: "Brand", Required: true},
				{ID: "featureBullets", Label: "Feature Bullets"},
				{ID: "description", Label: "Description", Required: true},
				{ID: "price", Label: "Price", Required: true},
				{ID: "tcin", Label: "TCIN"},
			},
		},
		&models.RetailerFieldSet{
			RetailerID: models.RetailerShopify,
			Fields: []models.RetailerField{
				{ID: "title", Label: "Title", Required: true},
				{ID: "bodyHtml", Label: "Description", Required: true},
				{ID: "vendor", Label: "Vendor"},
				{ID: "productType", Label: "Product Type"},
				{ID: "tags", Label: "Tags"},
				{ID: "price", Label: "Price", Required: true},
				{ID: "sku", Label: "SKU", Required: true},
			},
		},
		&models.RetailerFieldSet{
			RetailerID: models.RetailerEbay,
			Fields: []models.RetailerField{
				{ID: "title", Label: "Listing Title", Required: true},
				{ID: "subtitle", Label: "Subtitle"},
				{ID: "description", Label: "Item Description", Required: true},
				{ID: "conditionDescription", Label: "Condition Description"},
				{ID: "price", Label: "Start Price", Required: true},
				{ID: "sku", Label: "Custom Label (SKU)"},
			},
		},
		&models.RetailerFieldSet{
			RetailerID: models.RetailerEtsy,
			Fields: []models.RetailerField{
				{ID: "title", Label: "Title", Required: true},
				{ID: "description", Label: "Description", Required: true},
				{ID: "whoMade", Label: "Who Made It", Required: true},
				{ID: "whenMade", Label: "When Was It Made", Required: true},
				{ID: "price", Label: "Price", Required: true},
				{ID: "materials", Label: "Materials"},
				{ID: "sku", Label: "SKU"},
			},
		},
	)
}
