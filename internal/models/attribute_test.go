package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldType(t *testing.T) {
	tests := []struct {
		raw      string
		expected FieldType
	}{
		{"TEXT", FieldText},
		{"text", FieldText},
		{"STRING", FieldText},
		{"NUMBER", FieldNumber},
		{"BOOLEAN", FieldBoolean},
		{"DATE", FieldDate},
		{"LONG TEXT", FieldLongText},
		{"LONGTEXT", FieldLongText},
		{"RICH TEXT", FieldRichText},
		{"RICHTEXT", FieldRichText},
		{"DROPDOWN", FieldDropdown},
		{"PICKLIST", FieldDropdown},
		{"  dropdown  ", FieldDropdown},
		{"something-else", FieldText},
		{"", FieldText},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeFieldType(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeFieldTypeIdempotent(t *testing.T) {
	for _, ft := range []FieldType{FieldText, FieldNumber, FieldBoolean, FieldDate, FieldLongText, FieldRichText, FieldDropdown} {
		assert.Equal(t, ft, NormalizeFieldType(string(ft)))
	}
}

func TestEntityIDRegimes(t *testing.T) {
	saved := SavedID("a3a29bb8-4a82-4d1a-b3a5-0a86a5b7f9f2")
	assert.True(t, saved.Persisted())
	assert.Equal(t, "a3a29bb8-4a82-4d1a-b3a5-0a86a5b7f9f2", saved.Saved())

	local := NewLocalID()
	assert.False(t, local.Persisted())
	assert.Empty(t, local.Saved())
	assert.False(t, local.IsZero())

	other := NewLocalID()
	assert.NotEqual(t, local, other, "transient ids must be unique within a process")

	scoped := ScopedID("calc_7")
	assert.False(t, scoped.Persisted(), "session-scoped ids are never store-assigned")
	assert.Empty(t, scoped.Saved())
	assert.False(t, scoped.IsZero())
	assert.Equal(t, "calc_7", scoped.String())

	assert.True(t, EntityID{}.IsZero())
}

func TestEntityIDJSON(t *testing.T) {
	data, err := json.Marshal(SavedID("abc-123"))
	require.NoError(t, err)
	assert.Equal(t, `"abc-123"`, string(data))

	local := NewLocalID()
	data, err = json.Marshal(local)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"`, "transient ids marshal as numbers")

	var roundTrip EntityID
	require.NoError(t, json.Unmarshal(data, &roundTrip))
	assert.Equal(t, local, roundTrip)

	var fromString EntityID
	require.NoError(t, json.Unmarshal([]byte(`"xyz"`), &fromString))
	assert.True(t, fromString.Persisted())

	data, err = json.Marshal(ScopedID("calc_3"))
	require.NoError(t, err)
	assert.Equal(t, `"calc_3"`, string(data), "scoped ids marshal as strings")

	var fromNull EntityID
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	assert.True(t, fromNull.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &fromNull))
}

func TestAttributeValidate(t *testing.T) {
	attr := Attribute{ID: NewLocalID(), Name: "Color", Type: FieldDropdown}
	assert.Error(t, attr.Validate(), "dropdown without options must fail")

	attr.Options = []string{}
	assert.NoError(t, attr.Validate(), "empty options list satisfies the invariant")

	attr.Options = []string{"Red", "Green"}
	assert.NoError(t, attr.Validate())

	text := Attribute{ID: NewLocalID(), Name: "Title", Type: FieldText}
	assert.NoError(t, text.Validate(), "non-dropdown attributes need no options")

	unnamed := Attribute{ID: NewLocalID(), Type: FieldText}
	assert.Error(t, unnamed.Validate())

	calc := Attribute{ID: NewLocalID(), Name: "Margin", Type: FieldNumber, IsCalculative: true}
	assert.Error(t, calc.Validate(), "calculated attributes require a formula")
	calc.Formula = "{1} - {2}"
	assert.NoError(t, calc.Validate())
}

func TestSectionValidate(t *testing.T) {
	section := Section{ID: NewLocalID(), Title: "General", Attributes: []Attribute{
		{ID: NewLocalID(), Name: "Title", Type: FieldText},
	}}
	assert.NoError(t, section.Validate())

	section.Title = ""
	assert.Error(t, section.Validate())

	section.Title = "General"
	section.Attributes = append(section.Attributes, Attribute{ID: NewLocalID(), Name: "Size", Type: FieldDropdown})
	assert.Error(t, section.Validate(), "invalid attribute fails the section")
}
