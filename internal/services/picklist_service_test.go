package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pim-service/internal/models"
)

func newDropdownSession() *EditSession {
	return &EditSession{
		template: &models.ViewTemplate{
			ID:   models.SavedID("t1"),
			Name: "Existing",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Color", Type: models.FieldDropdown, Options: []string{"Red", "Green"}},
					},
				},
			},
		},
	}
}

func TestPicklistDraftIsolation(t *testing.T) {
	session := newDropdownSession()
	editor := NewPicklistEditor()
	attrID := models.SavedID("a1")

	editor.Open(attrID, session.Template().Sections[0].Attributes[0].Options)
	require.NoError(t, editor.AddOption(attrID, "Blue"))
	require.NoError(t, editor.UpdateOption(attrID, 0, "Crimson"))

	// The attribute sees nothing until commit.
	assert.Equal(t, []string{"Red", "Green"}, session.Template().Sections[0].Attributes[0].Options)
	assert.Equal(t, []string{"Crimson", "Green", "Blue"}, editor.Draft(attrID))

	// Draft returns a copy; mutating it does not touch the staged state.
	draft := editor.Draft(attrID)
	draft[0] = "mangled"
	assert.Equal(t, "Crimson", editor.Draft(attrID)[0])
}

func TestPicklistRemoveAndReorder(t *testing.T) {
	editor := NewPicklistEditor()
	attrID := models.SavedID("a1")
	editor.Open(attrID, []string{"XS", "S", "M", "L"})

	require.NoError(t, editor.RemoveOption(attrID, 0))
	assert.Equal(t, []string{"S", "M", "L"}, editor.Draft(attrID))

	require.NoError(t, editor.ReorderOption(attrID, 2, 0))
	assert.Equal(t, []string{"L", "S", "M"}, editor.Draft(attrID))

	require.NoError(t, editor.ReorderOption(attrID, 0, 2))
	assert.Equal(t, []string{"S", "M", "L"}, editor.Draft(attrID))

	assert.Error(t, editor.RemoveOption(attrID, 3))
	assert.Error(t, editor.UpdateOption(attrID, -1, "x"))
	assert.Error(t, editor.ReorderOption(attrID, 0, 5))
}

func TestPicklistCommit(t *testing.T) {
	session := newDropdownSession()
	editor := NewPicklistEditor()
	attrID := models.SavedID("a1")

	editor.Open(attrID, session.Template().Sections[0].Attributes[0].Options)
	require.NoError(t, editor.AddOption(attrID, "Blue"))
	require.NoError(t, editor.RemoveOption(attrID, 0))

	require.NoError(t, editor.Commit(session, models.SavedID("s1"), attrID))
	assert.Equal(t, []string{"Green", "Blue"}, session.Template().Sections[0].Attributes[0].Options)

	// Commit closes the draft; further edits need a fresh Open.
	assert.Nil(t, editor.Draft(attrID))
	assert.Error(t, editor.AddOption(attrID, "Yellow"))
	assert.Error(t, editor.Commit(session, models.SavedID("s1"), attrID))
}

func TestPicklistDiscard(t *testing.T) {
	session := newDropdownSession()
	editor := NewPicklistEditor()
	attrID := models.SavedID("a1")

	editor.Open(attrID, session.Template().Sections[0].Attributes[0].Options)
	require.NoError(t, editor.AddOption(attrID, "Blue"))
	editor.Discard(attrID)

	assert.Nil(t, editor.Draft(attrID))
	assert.Equal(t, []string{"Red", "Green"}, session.Template().Sections[0].Attributes[0].Options)
}

func TestPicklistReopenResetsDraft(t *testing.T) {
	editor := NewPicklistEditor()
	attrID := models.SavedID("a1")

	editor.Open(attrID, []string{"Red"})
	require.NoError(t, editor.AddOption(attrID, "Blue"))

	editor.Open(attrID, []string{"Red"})
	assert.Equal(t, []string{"Red"}, editor.Draft(attrID))
}

func TestPicklistNoDraftErrors(t *testing.T) {
	editor := NewPicklistEditor()
	attrID := models.NewLocalID()

	assert.Nil(t, editor.Draft(attrID))
	assert.Error(t, editor.AddOption(attrID, "x"))
	assert.Error(t, editor.UpdateOption(attrID, 0, "x"))
	assert.Error(t, editor.RemoveOption(attrID, 0))
	assert.Error(t, editor.ReorderOption(attrID, 0, 0))
}
