package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"pim-service/internal/models"
)

// TemplateRepository is the persistence boundary for view templates. A failed
// call must leave the stored state unchanged; the service guarantees the same
// for its in-memory state.
type TemplateRepository interface {
	Create(ctx context.Context, tenantID string, payload *models.CreateTemplatePayload) (*models.ViewTemplate, error)
	Update(ctx context.Context, tenantID string, payload *models.UpdateTemplatePayload) (*models.ViewTemplate, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.ViewTemplate, error)
	List(ctx context.Context, tenantID string) ([]models.ViewTemplate, error)
	Delete(ctx context.Context, tenantID, id string) error
	SetDefault(ctx context.Context, tenantID, id string) error
	SetDefaultFieldMapping(ctx context.Context, tenantID, id string, dfm *models.DefaultFieldMapping) error
}

// TemplateEventPublisher publishes template lifecycle events. May be nil.
type TemplateEventPublisher interface {
	PublishTemplateCreated(ctx context.Context, tenantID string, tpl *models.ViewTemplate)
	PublishTemplateUpdated(ctx context.Context, tenantID string, tpl *models.ViewTemplate)
	PublishTemplateDeleted(ctx context.Context, tenantID, templateID string)
}

// AttributeUpdate is a partial update shallow-merged into an attribute. Nil
// fields are left untouched.
type AttributeUpdate struct {
	Name     *string
	Type     *models.FieldType
	Required *bool
	Options  *[]string
	Formula  *string
}

// EditSession is one editing pass over a view template: all structural edits
// mutate the in-memory template immediately, while removals of persisted
// entities accumulate in side-lists consumed at save time. Side-lists start
// empty and are reset after every successful save, so a session is always
// safe to replay against the store.
type EditSession struct {
	mu       sync.Mutex
	template *models.ViewTemplate
	isNew    bool

	deletedSectionIDs []string
	deletedAttributes []models.DeletedAttribute
}

// Template returns the session's working template.
func (s *EditSession) Template() *models.ViewTemplate {
	return s.template
}

// IsNew reports whether the template has never been persisted.
func (s *EditSession) IsNew() bool {
	return s.isNew
}

// DeletedSectionIDs returns the persisted section ids removed this session.
func (s *EditSession) DeletedSectionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deletedSectionIDs))
	copy(out, s.deletedSectionIDs)
	return out
}

// DeletedAttributes returns the persisted attributes removed this session.
func (s *EditSession) DeletedAttributes() []models.DeletedAttribute {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DeletedAttribute, len(s.deletedAttributes))
	copy(out, s.deletedAttributes)
	return out
}

// AddSection inserts a new section with a transient id at insertIndex, or
// appends when insertIndex is out of range. Orders are renumbered 0..n-1.
func (s *EditSession) AddSection(title string, insertIndex int) *models.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := models.Section{
		ID:         models.NewLocalID(),
		Title:      title,
		Attributes: []models.Attribute{},
	}
	sections := s.template.Sections
	if insertIndex < 0 || insertIndex > len(sections) {
		insertIndex = len(sections)
	}
	sections = append(sections, models.Section{})
	copy(sections[insertIndex+1:], sections[insertIndex:])
	sections[insertIndex] = section
	s.template.Sections = sections
	renumberSections(s.template.Sections)
	return &s.template.Sections[insertIndex]
}

// DeleteSection removes a section and its attributes. Persisted section ids are
// recorded for the save-time delete block; the section's attributes die with it
// and need no individual tracking.
func (s *EditSession) DeleteSection(sectionID models.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.template.Sections {
		if s.template.Sections[i].ID != sectionID {
			continue
		}
		s.template.Sections = append(s.template.Sections[:i], s.template.Sections[i+1:]...)
		renumberSections(s.template.Sections)
		if sectionID.Persisted() {
			s.deletedSectionIDs = append(s.deletedSectionIDs, sectionID.Saved())
		}
		return nil
	}
	return fmt.Errorf("section %s not found", sectionID)
}

// AddAttribute inserts a new attribute with a transient id into a section.
// The returned pointer is valid until the next structural edit of the section;
// callers that need a stable reference should keep the id.
func (s *EditSession) AddAttribute(sectionID models.EntityID, name string, fieldType models.FieldType, insertIndex int) (*models.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := s.template.FindSection(sectionID)
	if section == nil {
		return nil, fmt.Errorf("section %s not found", sectionID)
	}
	attr := models.Attribute{
		ID:   models.NewLocalID(),
		Name: name,
		Type: fieldType,
	}
	if attr.Type == models.FieldDropdown {
		attr.Options = []string{}
	}
	attrs := section.Attributes
	if insertIndex < 0 || insertIndex > len(attrs) {
		insertIndex = len(attrs)
	}
	attrs = append(attrs, models.Attribute{})
	copy(attrs[insertIndex+1:], attrs[insertIndex:])
	attrs[insertIndex] = attr
	section.Attributes = attrs
	renumberAttributes(section.Attributes)
	return &section.Attributes[insertIndex], nil
}

// DeleteAttribute removes an attribute from its section. The removal is
// tracked for persistence only when both the section and the attribute carry
// persisted ids; transient ids cannot refer to anything stored.
func (s *EditSession) DeleteAttribute(sectionID, attributeID models.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := s.template.FindSection(sectionID)
	if section == nil {
		return fmt.Errorf("section %s not found", sectionID)
	}
	for i := range section.Attributes {
		if section.Attributes[i].ID != attributeID {
			continue
		}
		section.Attributes = append(section.Attributes[:i], section.Attributes[i+1:]...)
		renumberAttributes(section.Attributes)
		if sectionID.Persisted() && attributeID.Persisted() {
			s.deletedAttributes = append(s.deletedAttributes, models.DeletedAttribute{
				ID:        attributeID.Saved(),
				SectionID: sectionID.Saved(),
			})
		}
		return nil
	}
	return fmt.Errorf("attribute %s not found in section %s", attributeID, sectionID)
}

// UpdateAttribute shallow-merges a partial update into an attribute. Setting
// the type to Dropdown on an attribute without options initializes an empty
// list so the dropdown/options invariant holds after every type change; moving
// away from Dropdown leaves prior options inert.
func (s *EditSession) UpdateAttribute(sectionID, attributeID models.EntityID, update AttributeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := s.template.FindSection(sectionID)
	if section == nil {
		return fmt.Errorf("section %s not found", sectionID)
	}
	for i := range section.Attributes {
		attr := &section.Attributes[i]
		if attr.ID != attributeID {
			continue
		}
		if update.Name != nil {
			attr.Name = *update.Name
		}
		if update.Type != nil {
			attr.Type = *update.Type
		}
		if update.Required != nil {
			attr.Required = *update.Required
		}
		if update.Options != nil {
			attr.Options = *update.Options
		}
		if update.Formula != nil {
			attr.Formula = *update.Formula
		}
		if attr.Type == models.FieldDropdown && attr.Options == nil {
			attr.Options = []string{}
		}
		return nil
	}
	return fmt.Errorf("attribute %s not found in section %s", attributeID, sectionID)
}

// RenameSection updates a section title in place.
func (s *EditSession) RenameSection(sectionID models.EntityID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := s.template.FindSection(sectionID)
	if section == nil {
		return fmt.Errorf("section %s not found", sectionID)
	}
	section.Title = title
	return nil
}

// ReorderSections splices a section from one index to another and renumbers.
func (s *EditSession) ReorderSections(fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sections := s.template.Sections
	if fromIndex < 0 || fromIndex >= len(sections) || toIndex < 0 || toIndex >= len(sections) {
		return fmt.Errorf("reorder indexes out of range")
	}
	moved := sections[fromIndex]
	sections = append(sections[:fromIndex], sections[fromIndex+1:]...)
	sections = append(sections, models.Section{})
	copy(sections[toIndex+1:], sections[toIndex:])
	sections[toIndex] = moved
	s.template.Sections = sections
	renumberSections(s.template.Sections)
	return nil
}

// ReorderAttributes splices an attribute within its section and renumbers.
func (s *EditSession) ReorderAttributes(sectionID models.EntityID, fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	section := s.template.FindSection(sectionID)
	if section == nil {
		return fmt.Errorf("section %s not found", sectionID)
	}
	attrs := section.Attributes
	if fromIndex < 0 || fromIndex >= len(attrs) || toIndex < 0 || toIndex >= len(attrs) {
		return fmt.Errorf("reorder indexes out of range")
	}
	moved := attrs[fromIndex]
	attrs = append(attrs[:fromIndex], attrs[fromIndex+1:]...)
	attrs = append(attrs, models.Attribute{})
	copy(attrs[toIndex+1:], attrs[toIndex:])
	attrs[toIndex] = moved
	section.Attributes = attrs
	renumberAttributes(section.Attributes)
	return nil
}

// MoveAttribute relocates an attribute across sections. Both the source and
// destination attribute lists are renumbered from their new positions. Moving
// a persisted attribute out of a persisted section is an update, not a delete,
// so no deletion tracking applies.
func (s *EditSession) MoveAttribute(fromSectionID, toSectionID models.EntityID, fromIndex, toIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.template.FindSection(fromSectionID)
	if from == nil {
		return fmt.Errorf("section %s not found", fromSectionID)
	}
	to := s.template.FindSection(toSectionID)
	if to == nil {
		return fmt.Errorf("section %s not found", toSectionID)
	}
	if fromIndex < 0 || fromIndex >= len(from.Attributes) {
		return fmt.Errorf("source index out of range")
	}
	moved := from.Attributes[fromIndex]
	from.Attributes = append(from.Attributes[:fromIndex], from.Attributes[fromIndex+1:]...)
	if toIndex < 0 || toIndex > len(to.Attributes) {
		toIndex = len(to.Attributes)
	}
	to.Attributes = append(to.Attributes, models.Attribute{})
	copy(to.Attributes[toIndex+1:], to.Attributes[toIndex:])
	to.Attributes[toIndex] = moved
	renumberAttributes(from.Attributes)
	renumberAttributes(to.Attributes)
	return nil
}

// BuildCreatePayload produces the create wire shape, stripped of all
// client-side ids.
func (s *EditSession) BuildCreatePayload() *models.CreateTemplatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := &models.CreateTemplatePayload{
		Name:        s.template.Name,
		Description: s.template.Description,
		Sections:    make([]models.CreateSectionPayload, 0, len(s.template.Sections)),
	}
	for _, section := range s.template.Sections {
		sp := models.CreateSectionPayload{
			Title:      section.Title,
			Order:      section.Order,
			Attributes: make([]models.CreateAttributePayload, 0, len(section.Attributes)),
		}
		for _, attr := range section.Attributes {
			sp.Attributes = append(sp.Attributes, models.CreateAttributePayload{
				Name:     attr.Name,
				Type:     attr.Type,
				Required: attr.Required,
				Order:    attr.Order,
				Options:  wireOptions(attr),
			})
		}
		payload.Sections = append(payload.Sections, sp)
	}
	return payload
}

// BuildUpdatePayload produces the update wire shape: persisted ids travel,
// transient ids are omitted so the store creates those entries, and the
// session's side-lists become the delete_data block.
func (s *EditSession) BuildUpdatePayload() *models.UpdateTemplatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := &models.UpdateTemplatePayload{
		TemplateID: s.template.ID.Saved(),
		DeleteFull: false,
		UpdateData: models.UpdateTemplateData{
			Name:        s.template.Name,
			Description: s.template.Description,
			Sections:    make([]models.UpdateSectionPayload, 0, len(s.template.Sections)),
		},
	}
	for _, section := range s.template.Sections {
		sp := models.UpdateSectionPayload{
			ID:         wireID(section.ID),
			Title:      section.Title,
			Order:      section.Order,
			Attributes: make([]models.UpdateAttributePayload, 0, len(section.Attributes)),
		}
		for _, attr := range section.Attributes {
			sp.Attributes = append(sp.Attributes, models.UpdateAttributePayload{
				ID:       wireID(attr.ID),
				Name:     attr.Name,
				Type:     attr.Type,
				Required: attr.Required,
				Order:    attr.Order,
				Options:  wireOptions(attr),
			})
		}
		payload.UpdateData.Sections = append(payload.UpdateData.Sections, sp)
	}
	if len(s.deletedSectionIDs) > 0 || len(s.deletedAttributes) > 0 {
		payload.DeleteData = &models.DeleteData{
			SectionIDs: append([]string(nil), s.deletedSectionIDs...),
			Attributes: append([]models.DeletedAttribute(nil), s.deletedAttributes...),
		}
	}
	return payload
}

// resetDeletions clears the side-lists; called after a successful save so the
// next editing pass starts clean.
func (s *EditSession) resetDeletions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedSectionIDs = nil
	s.deletedAttributes = nil
}

func wireID(id models.EntityID) *string {
	if !id.Persisted() {
		return nil
	}
	v := id.Saved()
	return &v
}

// wireOptions drops options for non-dropdown attributes so inert leftovers from
// a type change never reach the wire.
func wireOptions(attr models.Attribute) []string {
	if attr.Type != models.FieldDropdown {
		return nil
	}
	if attr.Options == nil {
		return []string{}
	}
	return attr.Options
}

func renumberSections(sections []models.Section) {
	for i := range sections {
		sections[i].Order = i
	}
}

func renumberAttributes(attrs []models.Attribute) {
	for i := range attrs {
		attrs[i].Order = i
	}
}

// TemplateService owns view-template editing sessions and mediates persistence.
type TemplateService struct {
	repo      TemplateRepository
	publisher TemplateEventPublisher
	logger    *logrus.Entry
}

// NewTemplateService creates a new template service. The publisher may be nil.
func NewTemplateService(repo TemplateRepository, publisher TemplateEventPublisher, logger *logrus.Logger) *TemplateService {
	return &TemplateService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "template-service"),
	}
}

// NewSession starts an editing session for a brand-new template.
func (svc *TemplateService) NewSession(tenantID, name, description string) *EditSession {
	return &EditSession{
		template: &models.ViewTemplate{
			ID:          models.NewLocalID(),
			TenantID:    tenantID,
			Name:        name,
			Description: description,
			Sections:    []models.Section{},
		},
		isNew: true,
	}
}

// OpenSession loads a persisted template into a fresh editing session.
func (svc *TemplateService) OpenSession(ctx context.Context, tenantID, templateID string) (*EditSession, error) {
	tpl, err := svc.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	return &EditSession{template: tpl}, nil
}

// CloneSession starts a session whose sections are copied from an existing
// template with freshly generated transient ids throughout, so saving the
// clone creates entirely new entities.
func (svc *TemplateService) CloneSession(tenantID, name string, source *models.ViewTemplate) *EditSession {
	sections := make([]models.Section, 0, len(source.Sections))
	for _, src := range source.Sections {
		section := models.Section{
			ID:         models.NewLocalID(),
			Title:      src.Title,
			Order:      src.Order,
			Attributes: make([]models.Attribute, 0, len(src.Attributes)),
		}
		for _, a := range src.Attributes {
			attr := a
			attr.ID = models.NewLocalID()
			if attr.Options != nil {
				attr.Options = append([]string(nil), attr.Options...)
			}
			section.Attributes = append(section.Attributes, attr)
		}
		sections = append(sections, section)
	}
	return &EditSession{
		template: &models.ViewTemplate{
			ID:          models.NewLocalID(),
			TenantID:    tenantID,
			Name:        name,
			Description: source.Description,
			Sections:    sections,
		},
		isNew: true,
	}
}

// Save persists the session's template: a create for new templates, a partial
// update carrying the deletion side-lists otherwise. On success the session is
// rebased onto the persisted result and its side-lists reset; on failure the
// in-memory template and side-lists are left exactly as they were.
func (svc *TemplateService) Save(ctx context.Context, session *EditSession) (*models.ViewTemplate, error) {
	tpl := session.Template()
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if session.IsNew() {
		saved, err := svc.repo.Create(ctx, tpl.TenantID, session.BuildCreatePayload())
		if err != nil {
			svc.logger.WithError(err).WithField("template", tpl.Name).Error("template create failed")
			return nil, err
		}
		session.mu.Lock()
		session.template = saved
		session.isNew = false
		session.mu.Unlock()
		session.resetDeletions()
		if svc.publisher != nil {
			svc.publisher.PublishTemplateCreated(ctx, saved.TenantID, saved)
		}
		return saved, nil
	}

	saved, err := svc.repo.Update(ctx, tpl.TenantID, session.BuildUpdatePayload())
	if err != nil {
		svc.logger.WithError(err).WithField("templateId", tpl.ID.Saved()).Error("template update failed")
		return nil, err
	}
	session.mu.Lock()
	session.template = saved
	session.mu.Unlock()
	session.resetDeletions()
	if svc.publisher != nil {
		svc.publisher.PublishTemplateUpdated(ctx, saved.TenantID, saved)
	}
	return saved, nil
}

// Create persists a wire create payload and publishes the created event.
// All template creation funnels through here so publication has one owner.
func (svc *TemplateService) Create(ctx context.Context, tenantID string, payload *models.CreateTemplatePayload) (*models.ViewTemplate, error) {
	saved, err := svc.repo.Create(ctx, tenantID, payload)
	if err != nil {
		svc.logger.WithError(err).WithField("template", payload.Name).Error("template create failed")
		return nil, err
	}
	if svc.publisher != nil {
		svc.publisher.PublishTemplateCreated(ctx, tenantID, saved)
	}
	return saved, nil
}

// Update persists a wire update payload and publishes the updated event.
func (svc *TemplateService) Update(ctx context.Context, tenantID string, payload *models.UpdateTemplatePayload) (*models.ViewTemplate, error) {
	saved, err := svc.repo.Update(ctx, tenantID, payload)
	if err != nil {
		svc.logger.WithError(err).WithField("templateId", payload.TemplateID).Error("template update failed")
		return nil, err
	}
	if svc.publisher != nil {
		svc.publisher.PublishTemplateUpdated(ctx, tenantID, saved)
	}
	return saved, nil
}

// Clone copies a stored template into a brand-new one through a clone session,
// so every section and attribute gets fresh ids and the save publishes created.
func (svc *TemplateService) Clone(ctx context.Context, tenantID, sourceID, name string) (*models.ViewTemplate, error) {
	source, err := svc.repo.GetByID(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}
	return svc.Save(ctx, svc.CloneSession(tenantID, name, source))
}

// SetDefault marks one template as the tenant default.
func (svc *TemplateService) SetDefault(ctx context.Context, tenantID, templateID string) error {
	return svc.repo.SetDefault(ctx, tenantID, templateID)
}

// List returns all templates for a tenant.
func (svc *TemplateService) List(ctx context.Context, tenantID string) ([]models.ViewTemplate, error) {
	return svc.repo.List(ctx, tenantID)
}

// Get returns one template by id.
func (svc *TemplateService) Get(ctx context.Context, tenantID, templateID string) (*models.ViewTemplate, error) {
	return svc.repo.GetByID(ctx, tenantID, templateID)
}

// Delete removes a template entirely.
func (svc *TemplateService) Delete(ctx context.Context, tenantID, templateID string) error {
	if err := svc.repo.Delete(ctx, tenantID, templateID); err != nil {
		return err
	}
	if svc.publisher != nil {
		svc.publisher.PublishTemplateDeleted(ctx, tenantID, templateID)
	}
	return nil
}
