package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSectionsDocumentMintsIDs(t *testing.T) {
	sections := []Section{
		{
			ID:    NewLocalID(),
			Title: "General",
			Attributes: []Attribute{
				{ID: NewLocalID(), Name: "Title", Type: FieldText, Required: true},
				{ID: SavedID("b2f0d9a4-9d5a-4f82-91a5-09c1a6d7e8f3"), Name: "Brand", Type: FieldText, Order: 1},
			},
		},
	}

	doc, assigned, err := SectionsDocument(sections)
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	assert.True(t, assigned[0].ID.Persisted(), "transient section id gets a minted uuid")
	_, err = uuid.Parse(assigned[0].ID.Saved())
	assert.NoError(t, err)

	assert.True(t, assigned[0].Attributes[0].ID.Persisted())
	assert.Equal(t, "b2f0d9a4-9d5a-4f82-91a5-09c1a6d7e8f3", assigned[0].Attributes[1].ID.Saved(), "already persisted ids survive unchanged")

	// Input slice is not mutated.
	assert.False(t, sections[0].ID.Persisted())

	var stored []map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "General", stored[0]["title"])
}

func TestViewTemplateRecordToModel(t *testing.T) {
	sectionsDoc := `[{
		"id": "s1",
		"title": "General",
		"order": 0,
		"attributes": [
			{"id": "a1", "name": "Title", "type": "TEXT", "required": true, "order": 0},
			{"id": "a2", "name": "Color", "type": "PICKLIST", "order": 1}
		]
	}]`

	record := ViewTemplateRecord{
		ID:       uuid.New(),
		TenantID: "tenant-1",
		Name:     "Apparel",
		Sections: datatypes.JSON(sectionsDoc),
	}

	tpl, err := record.ToModel()
	require.NoError(t, err)

	assert.Equal(t, "Apparel", tpl.Name)
	assert.True(t, tpl.ID.Persisted())
	require.Len(t, tpl.Sections, 1)
	require.Len(t, tpl.Sections[0].Attributes, 2)

	title := tpl.Sections[0].Attributes[0]
	assert.Equal(t, FieldText, title.Type, "wire types are normalized on read")

	color := tpl.Sections[0].Attributes[1]
	assert.Equal(t, FieldDropdown, color.Type)
	assert.NotNil(t, color.Options, "dropdown invariant is repaired on read")
	assert.Empty(t, color.Options)
}

func TestViewTemplateRecordToModelMalformed(t *testing.T) {
	record := ViewTemplateRecord{
		ID:       uuid.New(),
		Sections: datatypes.JSON(`{"not":"an array"}`),
	}
	_, err := record.ToModel()
	assert.Error(t, err)
}

func TestViewTemplateRecordDefaultFieldMapping(t *testing.T) {
	record := ViewTemplateRecord{
		ID:                  uuid.New(),
		Name:                "With mapping",
		Sections:            datatypes.JSON(`[]`),
		DefaultFieldMapping: datatypes.JSON(`{"templateId":"fmt-1","enabledRetailers":["amazon","walmart"]}`),
	}

	tpl, err := record.ToModel()
	require.NoError(t, err)
	require.NotNil(t, tpl.DefaultFieldMapping)
	assert.Equal(t, "fmt-1", tpl.DefaultFieldMapping.TemplateID)
	assert.Equal(t, []string{"amazon", "walmart"}, tpl.DefaultFieldMapping.EnabledRetailers)
}

func TestMappingTemplateRecordRoundTrip(t *testing.T) {
	template := &FieldMappingTemplate{
		ID:        SavedID(uuid.New().String()),
		TenantID:  "tenant-1",
		Name:      "Spring catalog",
		Category:  "Apparel",
		Retailers: []string{"amazon", "shopify"},
		Mappings: map[string]Mapping{
			"amazon": {"title": "a1", "brand": "a2"},
		},
	}

	record, err := FromMappingTemplate(template)
	require.NoError(t, err)

	restored, err := record.ToModel()
	require.NoError(t, err)
	assert.Equal(t, template.Name, restored.Name)
	assert.Equal(t, template.Retailers, restored.Retailers)
	assert.Equal(t, template.Mappings["amazon"], restored.Mappings["amazon"])
}

func TestFromMappingTemplateRejectsBadID(t *testing.T) {
	template := &FieldMappingTemplate{
		ID:        SavedID("not-a-uuid"),
		Name:      "Broken",
		Category:  "Misc",
		Retailers: []string{"amazon"},
	}
	_, err := FromMappingTemplate(template)
	assert.Error(t, err)
}
