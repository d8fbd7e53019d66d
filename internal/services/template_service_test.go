package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pim-service/internal/models"
)

// fakeTemplateRepo records the payloads it receives and plays back canned
// results, persisting ids the way the real store does.
type fakeTemplateRepo struct {
	lastCreate *models.CreateTemplatePayload
	lastUpdate *models.UpdateTemplatePayload
	stored     *models.ViewTemplate
	defaultID  string
	failNext   bool
	nextID     int
}

func (f *fakeTemplateRepo) mintID() string {
	f.nextID++
	return fmt.Sprintf("saved-%d", f.nextID)
}

func (f *fakeTemplateRepo) Create(ctx context.Context, tenantID string, payload *models.CreateTemplatePayload) (*models.ViewTemplate, error) {
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("store unavailable")
	}
	f.lastCreate = payload

	tpl := &models.ViewTemplate{
		ID:          models.SavedID(f.mintID()),
		TenantID:    tenantID,
		Name:        payload.Name,
		Description: payload.Description,
	}
	for _, sp := range payload.Sections {
		section := models.Section{
			ID:    models.SavedID(f.mintID()),
			Title: sp.Title,
			Order: sp.Order,
		}
		for _, ap := range sp.Attributes {
			section.Attributes = append(section.Attributes, models.Attribute{
				ID:       models.SavedID(f.mintID()),
				Name:     ap.Name,
				Type:     ap.Type,
				Required: ap.Required,
				Order:    ap.Order,
				Options:  ap.Options,
			})
		}
		tpl.Sections = append(tpl.Sections, section)
	}
	return tpl, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, tenantID string, payload *models.UpdateTemplatePayload) (*models.ViewTemplate, error) {
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("store unavailable")
	}
	f.lastUpdate = payload

	tpl := &models.ViewTemplate{
		ID:          models.SavedID(payload.TemplateID),
		TenantID:    tenantID,
		Name:        payload.UpdateData.Name,
		Description: payload.UpdateData.Description,
	}
	for _, sp := range payload.UpdateData.Sections {
		id := f.mintID()
		if sp.ID != nil {
			id = *sp.ID
		}
		section := models.Section{ID: models.SavedID(id), Title: sp.Title, Order: sp.Order}
		for _, ap := range sp.Attributes {
			attrID := f.mintID()
			if ap.ID != nil {
				attrID = *ap.ID
			}
			section.Attributes = append(section.Attributes, models.Attribute{
				ID:       models.SavedID(attrID),
				Name:     ap.Name,
				Type:     ap.Type,
				Required: ap.Required,
				Order:    ap.Order,
				Options:  ap.Options,
			})
		}
		tpl.Sections = append(tpl.Sections, section)
	}
	return tpl, nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, tenantID, id string) (*models.ViewTemplate, error) {
	if f.stored != nil {
		return f.stored, nil
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeTemplateRepo) List(ctx context.Context, tenantID string) ([]models.ViewTemplate, error) {
	return nil, nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, tenantID, id string) error { return nil }

func (f *fakeTemplateRepo) SetDefault(ctx context.Context, tenantID, id string) error {
	f.defaultID = id
	return nil
}

func (f *fakeTemplateRepo) SetDefaultFieldMapping(ctx context.Context, tenantID, id string, dfm *models.DefaultFieldMapping) error {
	return nil
}

func newTestTemplateService(repo TemplateRepository) *TemplateService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTemplateService(repo, nil, logger)
}

func TestEditSessionOrderContiguity(t *testing.T) {
	svc := newTestTemplateService(&fakeTemplateRepo{})
	session := svc.NewSession("tenant-1", "Apparel", "")

	general := session.AddSection("General", -1)
	session.AddSection("Pricing", -1)
	middle := session.AddSection("Media", 1)

	tpl := session.Template()
	require.Len(t, tpl.Sections, 3)
	assert.Equal(t, "Media", tpl.Sections[1].Title)
	for i, section := range tpl.Sections {
		assert.Equal(t, i, section.Order)
	}

	require.NoError(t, session.DeleteSection(middle.ID))
	for i, section := range session.Template().Sections {
		assert.Equal(t, i, section.Order)
	}

	_, err := session.AddAttribute(general.ID, "Title", models.FieldText, -1)
	require.NoError(t, err)
	_, err = session.AddAttribute(general.ID, "Brand", models.FieldText, -1)
	require.NoError(t, err)
	first, err := session.AddAttribute(general.ID, "SKU", models.FieldText, 0)
	require.NoError(t, err)
	// The returned pointer aliases the attribute slice; later structural edits
	// shift elements through it, so hold the id, not the pointer.
	firstID := first.ID

	attrs := session.Template().FindSection(general.ID).Attributes
	require.Len(t, attrs, 3)
	assert.Equal(t, "SKU", attrs[0].Name)
	for i, attr := range attrs {
		assert.Equal(t, i, attr.Order)
	}

	require.NoError(t, session.ReorderAttributes(general.ID, 0, 2))
	attrs = session.Template().FindSection(general.ID).Attributes
	assert.Equal(t, "SKU", attrs[2].Name)
	assert.Equal(t, firstID, attrs[2].ID)
	for i, attr := range attrs {
		assert.Equal(t, i, attr.Order)
	}
}

func TestEditSessionDeletionTracking(t *testing.T) {
	session := &EditSession{
		template: &models.ViewTemplate{
			ID:       models.SavedID("t1"),
			TenantID: "tenant-1",
			Name:     "Existing",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Title", Type: models.FieldText},
						{ID: models.SavedID("a2"), Name: "Brand", Type: models.FieldText, Order: 1},
					},
				},
				{ID: models.SavedID("s2"), Title: "Pricing", Order: 1},
			},
		},
	}

	// Deleting a transient section leaves no trace.
	added := session.AddSection("Scratch", -1)
	require.NoError(t, session.DeleteSection(added.ID))
	assert.Empty(t, session.DeletedSectionIDs())

	// Deleting a persisted attribute from a persisted section is tracked.
	require.NoError(t, session.DeleteAttribute(models.SavedID("s1"), models.SavedID("a2")))
	require.Len(t, session.DeletedAttributes(), 1)
	assert.Equal(t, models.DeletedAttribute{ID: "a2", SectionID: "s1"}, session.DeletedAttributes()[0])

	// Deleting a transient attribute is not tracked.
	attr, err := session.AddAttribute(models.SavedID("s1"), "Temp", models.FieldText, -1)
	require.NoError(t, err)
	require.NoError(t, session.DeleteAttribute(models.SavedID("s1"), attr.ID))
	assert.Len(t, session.DeletedAttributes(), 1)

	// Deleting a persisted section tracks the section only; its attributes go
	// with it and need no entries of their own.
	require.NoError(t, session.DeleteSection(models.SavedID("s2")))
	assert.Equal(t, []string{"s2"}, session.DeletedSectionIDs())
}

func TestEditSessionDropdownInvariant(t *testing.T) {
	session := &EditSession{
		template: &models.ViewTemplate{
			ID:   models.SavedID("t1"),
			Name: "Existing",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Color", Type: models.FieldText},
					},
				},
			},
		},
	}

	// Switching to Dropdown initializes an empty options list.
	dropdown := models.FieldDropdown
	require.NoError(t, session.UpdateAttribute(models.SavedID("s1"), models.SavedID("a1"), AttributeUpdate{Type: &dropdown}))
	attr := session.Template().Sections[0].Attributes[0]
	require.NotNil(t, attr.Options)
	assert.Empty(t, attr.Options)

	options := []string{"Red", "Green"}
	require.NoError(t, session.UpdateAttribute(models.SavedID("s1"), models.SavedID("a1"), AttributeUpdate{Options: &options}))

	// Switching away leaves options inert in memory but off the wire.
	text := models.FieldText
	require.NoError(t, session.UpdateAttribute(models.SavedID("s1"), models.SavedID("a1"), AttributeUpdate{Type: &text}))
	attr = session.Template().Sections[0].Attributes[0]
	assert.Equal(t, []string{"Red", "Green"}, attr.Options)

	payload := session.BuildUpdatePayload()
	assert.Nil(t, payload.UpdateData.Sections[0].Attributes[0].Options, "options dropped from wire for non-dropdown types")
}

func TestBuildCreatePayloadStripsIDs(t *testing.T) {
	svc := newTestTemplateService(&fakeTemplateRepo{})
	session := svc.NewSession("tenant-1", "New template", "desc")
	section := session.AddSection("General", -1)
	_, err := session.AddAttribute(section.ID, "Title", models.FieldText, -1)
	require.NoError(t, err)

	payload := session.BuildCreatePayload()
	assert.Equal(t, "New template", payload.Name)
	require.Len(t, payload.Sections, 1)
	require.Len(t, payload.Sections[0].Attributes, 1)
	// CreateSectionPayload has no id field at all; nothing further to assert
	// beyond shape.
}

func TestBuildUpdatePayloadShape(t *testing.T) {
	session := &EditSession{
		template: &models.ViewTemplate{
			ID:   models.SavedID("t1"),
			Name: "Existing",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Title", Type: models.FieldText},
					},
				},
			},
		},
	}

	// Mixed persisted and transient content plus one tracked deletion.
	require.NoError(t, session.DeleteAttribute(models.SavedID("s1"), models.SavedID("a1")))
	_, err := session.AddAttribute(models.SavedID("s1"), "Brand", models.FieldText, -1)
	require.NoError(t, err)
	session.AddSection("Media", -1)

	payload := session.BuildUpdatePayload()
	assert.Equal(t, "t1", payload.TemplateID)
	assert.False(t, payload.DeleteFull)

	require.Len(t, payload.UpdateData.Sections, 2)
	persisted := payload.UpdateData.Sections[0]
	require.NotNil(t, persisted.ID)
	assert.Equal(t, "s1", *persisted.ID)
	require.Len(t, persisted.Attributes, 1)
	assert.Nil(t, persisted.Attributes[0].ID, "transient attribute travels without an id")

	assert.Nil(t, payload.UpdateData.Sections[1].ID, "new section travels without an id")

	require.NotNil(t, payload.DeleteData)
	assert.Equal(t, []models.DeletedAttribute{{ID: "a1", SectionID: "s1"}}, payload.DeleteData.Attributes)
	assert.Empty(t, payload.DeleteData.SectionIDs)
}

func TestSaveCreateRebasesSession(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	session := svc.NewSession("tenant-1", "New template", "")
	section := session.AddSection("General", -1)
	_, err := session.AddAttribute(section.ID, "Title", models.FieldText, -1)
	require.NoError(t, err)

	saved, err := svc.Save(context.Background(), session)
	require.NoError(t, err)

	assert.True(t, saved.ID.Persisted())
	assert.False(t, session.IsNew(), "session flips to update mode after first save")
	assert.True(t, session.Template().Sections[0].ID.Persisted(), "session rebased onto persisted ids")
	assert.True(t, session.Template().Sections[0].Attributes[0].ID.Persisted())

	// Second save goes through the update path with an empty delete block.
	_, err = svc.Save(context.Background(), session)
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdate)
	assert.Nil(t, repo.lastUpdate.DeleteData)
}

func TestSaveFailureLeavesSessionUntouched(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	session := &EditSession{
		template: &models.ViewTemplate{
			ID:       models.SavedID("t1"),
			TenantID: "tenant-1",
			Name:     "Existing",
			Sections: []models.Section{
				{ID: models.SavedID("s1"), Title: "General"},
			},
		},
	}
	require.NoError(t, session.DeleteSection(models.SavedID("s1")))

	repo.failNext = true
	_, err := svc.Save(context.Background(), session)
	require.Error(t, err)
	assert.Equal(t, []string{"s1"}, session.DeletedSectionIDs(), "side-lists survive a failed save for replay")

	// Retry succeeds and resets the side-lists.
	_, err = svc.Save(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, session.DeletedSectionIDs())
}

func TestCloneSessionGeneratesFreshIDs(t *testing.T) {
	svc := newTestTemplateService(&fakeTemplateRepo{})

	source := &models.ViewTemplate{
		ID:          models.SavedID("t1"),
		Name:        "Source",
		Description: "desc",
		Sections: []models.Section{
			{
				ID:    models.SavedID("s1"),
				Title: "General",
				Attributes: []models.Attribute{
					{ID: models.SavedID("a1"), Name: "Color", Type: models.FieldDropdown, Options: []string{"Red"}},
				},
			},
		},
	}

	session := svc.CloneSession("tenant-1", "Copy of Source", source)
	require.True(t, session.IsNew())

	clone := session.Template()
	assert.Equal(t, "Copy of Source", clone.Name)
	assert.Equal(t, "desc", clone.Description)
	assert.False(t, clone.ID.Persisted())
	require.Len(t, clone.Sections, 1)
	assert.False(t, clone.Sections[0].ID.Persisted())
	assert.False(t, clone.Sections[0].Attributes[0].ID.Persisted())

	// Options are deep-copied, not shared.
	clone.Sections[0].Attributes[0].Options[0] = "Blue"
	assert.Equal(t, "Red", source.Sections[0].Attributes[0].Options[0])
}

// fakeTemplatePublisher counts lifecycle events.
type fakeTemplatePublisher struct {
	created, updated, deleted int
	lastTemplateID            string
}

func (p *fakeTemplatePublisher) PublishTemplateCreated(ctx context.Context, tenantID string, tpl *models.ViewTemplate) {
	p.created++
	p.lastTemplateID = tpl.ID.Saved()
}

func (p *fakeTemplatePublisher) PublishTemplateUpdated(ctx context.Context, tenantID string, tpl *models.ViewTemplate) {
	p.updated++
	p.lastTemplateID = tpl.ID.Saved()
}

func (p *fakeTemplatePublisher) PublishTemplateDeleted(ctx context.Context, tenantID, templateID string) {
	p.deleted++
	p.lastTemplateID = templateID
}

func TestServicePublishesLifecycleEvents(t *testing.T) {
	repo := &fakeTemplateRepo{}
	pub := &fakeTemplatePublisher{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewTemplateService(repo, pub, logger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "tenant-1", &models.CreateTemplatePayload{Name: "Apparel"})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.created)
	assert.Equal(t, created.ID.Saved(), pub.lastTemplateID)

	_, err = svc.Update(ctx, "tenant-1", &models.UpdateTemplatePayload{
		TemplateID: created.ID.Saved(),
		UpdateData: models.UpdateTemplateData{Name: "Apparel v2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.updated)

	require.NoError(t, svc.Delete(ctx, "tenant-1", created.ID.Saved()))
	assert.Equal(t, 1, pub.deleted)
	assert.Equal(t, created.ID.Saved(), pub.lastTemplateID)

	// A failed persist publishes nothing.
	repo.failNext = true
	_, err = svc.Create(ctx, "tenant-1", &models.CreateTemplatePayload{Name: "Broken"})
	require.Error(t, err)
	assert.Equal(t, 1, pub.created)
}

func TestServiceClone(t *testing.T) {
	repo := &fakeTemplateRepo{
		stored: &models.ViewTemplate{
			ID:          models.SavedID("t1"),
			Name:        "Source",
			Description: "desc",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Color", Type: models.FieldDropdown, Options: []string{"Red"}},
					},
				},
			},
		},
	}
	pub := &fakeTemplatePublisher{}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := NewTemplateService(repo, pub, logger)

	clone, err := svc.Clone(context.Background(), "tenant-1", "t1", "Copy of Source")
	require.NoError(t, err)

	assert.Equal(t, "Copy of Source", clone.Name)
	assert.True(t, clone.ID.Persisted())
	assert.NotEqual(t, "t1", clone.ID.Saved())

	// The clone travels as an id-free create payload and publishes created.
	require.NotNil(t, repo.lastCreate)
	assert.Nil(t, repo.lastUpdate)
	assert.Equal(t, 1, pub.created)
}

func TestServiceSetDefault(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	require.NoError(t, svc.SetDefault(context.Background(), "tenant-1", "t9"))
	assert.Equal(t, "t9", repo.defaultID)
}

func TestMoveAttributeAcrossSections(t *testing.T) {
	session := &EditSession{
		template: &models.ViewTemplate{
			ID:   models.SavedID("t1"),
			Name: "Existing",
			Sections: []models.Section{
				{
					ID:    models.SavedID("s1"),
					Title: "General",
					Attributes: []models.Attribute{
						{ID: models.SavedID("a1"), Name: "Title", Type: models.FieldText},
						{ID: models.SavedID("a2"), Name: "Brand", Type: models.FieldText, Order: 1},
					},
				},
				{ID: models.SavedID("s2"), Title: "Pricing", Order: 1},
			},
		},
	}

	require.NoError(t, session.MoveAttribute(models.SavedID("s1"), models.SavedID("s2"), 0, 0))

	from := session.Template().FindSection(models.SavedID("s1"))
	to := session.Template().FindSection(models.SavedID("s2"))
	require.Len(t, from.Attributes, 1)
	require.Len(t, to.Attributes, 1)
	assert.Equal(t, "Title", to.Attributes[0].Name)
	assert.Equal(t, 0, from.Attributes[0].Order)
	assert.Equal(t, 0, to.Attributes[0].Order)

	// A move is not a deletion.
	assert.Empty(t, session.DeletedAttributes())
}
