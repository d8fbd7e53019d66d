package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pim-service/internal/models"
)

func TestDefaultCatalogRetailers(t *testing.T) {
	c := Default()

	retailers := c.Retailers()
	assert.Equal(t, []string{
		models.RetailerAmazon,
		models.RetailerWalmart,
		models.RetailerTarget,
		models.RetailerShopify,
		models.RetailerEbay,
		models.RetailerEtsy,
	}, retailers, "declared order is the display order")

	// The returned slice is a copy.
	retailers[0] = "changed"
	assert.Equal(t, models.RetailerAmazon, c.Retailers()[0])
}

func TestFields(t *testing.T) {
	c := Default()

	fields, err := c.Fields(models.RetailerAmazon, "")
	require.NoError(t, err)
	require.NotEmpty(t, fields)
	assert.Equal(t, "title", fields[0].ID)
	assert.True(t, fields[0].Required)

	_, err = c.Fields("aliexpress", "")
	assert.Error(t, err)
}

func TestFieldsCategoryFallback(t *testing.T) {
	c := Default()

	apparel, err := c.Fields(models.RetailerAmazon, "apparel")
	require.NoError(t, err)
	ids := make([]string, len(apparel))
	for i, f := range apparel {
		ids[i] = f.ID
	}
	assert.Contains(t, ids, "size")
	assert.NotContains(t, ids, "bulletPoints")

	// Unknown categories fall back to the retailer-wide default set.
	fallback, err := c.Fields(models.RetailerAmazon, "automotive")
	require.NoError(t, err)
	defaults, err := c.Fields(models.RetailerAmazon, "")
	require.NoError(t, err)
	assert.Equal(t, defaults, fallback)

	// Flat-schema retailers ignore the category entirely.
	flat, err := c.Fields(models.RetailerTarget, "apparel")
	require.NoError(t, err)
	targetDefaults, err := c.Fields(models.RetailerTarget, "")
	require.NoError(t, err)
	assert.Equal(t, targetDefaults, flat)
}

func TestCategories(t *testing.T) {
	c := Default()

	amazon := c.Categories(models.RetailerAmazon)
	assert.ElementsMatch(t, []string{"apparel", "electronics"}, amazon)

	assert.Equal(t, []string{"grocery"}, c.Categories(models.RetailerWalmart))
	assert.Empty(t, c.Categories(models.RetailerTarget))
	assert.Empty(t, c.Categories("aliexpress"))
}

func TestNewPreservesOrder(t *testing.T) {
	c := New(
		&models.RetailerFieldSet{RetailerID: "b", Fields: []models.RetailerField{{ID: "x", Label: "X"}}},
		&models.RetailerFieldSet{RetailerID: "a", Fields: []models.RetailerField{{ID: "y", Label: "Y"}}},
	)
	assert.Equal(t, []string{"b", "a"}, c.Retailers())

	fields, err := c.Fields("a", "")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "y", fields[0].ID)
}
