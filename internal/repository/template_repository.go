package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"pim-service/internal/models"
)

// Cache TTL constants
const (
	TemplateCacheTTL     = 5 * time.Minute // Single template cache
	TemplateListCacheTTL = 2 * time.Minute // Template list cache (shorter due to frequent edits)
	cacheKeyPrefix       = "pim:view-templates:"
)

// ErrTemplateNotFound is returned when a template id does not resolve. Callers
// surface it as a terminal not-found state, never as a fallback to a default.
var ErrTemplateNotFound = errors.New("view template not found")

// TemplateRepository persists view templates in Postgres with a Redis
// read-through cache. Every write path invalidates before returning so a
// failed write never leaves a stale entry behind.
type TemplateRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewTemplateRepository creates a new template repository. The Redis client
// may be nil; caching is then disabled.
func NewTemplateRepository(db *gorm.DB, redisClient *redis.Client) *TemplateRepository {
	return &TemplateRepository{db: db, redis: redisClient}
}

func templateCacheKey(tenantID, id string) string {
	return fmt.Sprintf("%s%s:%s", cacheKeyPrefix, tenantID, id)
}

func templateListCacheKey(tenantID string) string {
	return fmt.Sprintf("%slist:%s", cacheKeyPrefix, tenantID)
}

func (r *TemplateRepository) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (r *TemplateRepository) cacheSet(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.redis.Set(ctx, key, data, ttl)
}

func (r *TemplateRepository) invalidate(ctx context.Context, tenantID, id string) {
	if r.redis == nil {
		return
	}
	keys := []string{templateListCacheKey(tenantID)}
	if id != "" {
		keys = append(keys, templateCacheKey(tenantID, id))
	}
	r.redis.Del(ctx, keys...)
}

// Create persists a new template from the id-free create payload and returns
// the stored template with its assigned ids.
func (r *TemplateRepository) Create(ctx context.Context, tenantID string, payload *models.CreateTemplatePayload) (*models.ViewTemplate, error) {
	sections := make([]models.Section, 0, len(payload.Sections))
	for _, sp := range payload.Sections {
		section := models.Section{
			Title:      sp.Title,
			Order:      sp.Order,
			Attributes: make([]models.Attribute, 0, len(sp.Attributes)),
		}
		for _, ap := range sp.Attributes {
			section.Attributes = append(section.Attributes, models.Attribute{
				Name:     ap.Name,
				Type:     models.NormalizeFieldType(string(ap.Type)),
				Required: ap.Required,
				Order:    ap.Order,
				Options:  ap.Options,
			})
		}
		sections = append(sections, section)
	}

	doc, _, err := models.SectionsDocument(sections)
	if err != nil {
		return nil, err
	}
	record := &models.ViewTemplateRecord{
		TenantID:    tenantID,
		Name:        payload.Name,
		Description: payload.Description,
		Sections:    doc,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	r.invalidate(ctx, tenantID, "")
	return record.ToModel()
}

// Update applies a partial update: update_data carries the full section list
// (persisted items with ids, new items without), delete_data names the
// persisted removals. Sections and attributes listed there are dropped even if
// the update_data still mentions them.
func (r *TemplateRepository) Update(ctx context.Context, tenantID string, payload *models.UpdateTemplatePayload) (*models.ViewTemplate, error) {
	record, err := r.fetchRecord(ctx, tenantID, payload.TemplateID)
	if err != nil {
		return nil, err
	}

	deletedSections := map[string]bool{}
	deletedAttrs := map[string]bool{}
	if payload.DeleteData != nil {
		for _, id := range payload.DeleteData.SectionIDs {
			deletedSections[id] = true
		}
		for _, d := range payload.DeleteData.Attributes {
			deletedAttrs[d.SectionID+"/"+d.ID] = true
		}
	}

	sections := make([]models.Section, 0, len(payload.UpdateData.Sections))
	for _, sp := range payload.UpdateData.Sections {
		sectionID := models.EntityID{}
		sectionKey := ""
		if sp.ID != nil {
			if deletedSections[*sp.ID] {
				continue
			}
			sectionID = models.SavedID(*sp.ID)
			sectionKey = *sp.ID
		}
		section := models.Section{
			ID:         sectionID,
			Title:      sp.Title,
			Order:      sp.Order,
			Attributes: make([]models.Attribute, 0, len(sp.Attributes)),
		}
		for _, ap := range sp.Attributes {
			attrID := models.EntityID{}
			if ap.ID != nil {
				if deletedAttrs[sectionKey+"/"+*ap.ID] {
					continue
				}
				attrID = models.SavedID(*ap.ID)
			}
			section.Attributes = append(section.Attributes, models.Attribute{
				ID:       attrID,
				Name:     ap.Name,
				Type:     models.NormalizeFieldType(string(ap.Type)),
				Required: ap.Required,
				Order:    ap.Order,
				Options:  ap.Options,
			})
		}
		sections = append(sections, section)
	}

	doc, _, err := models.SectionsDocument(sections)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":        payload.UpdateData.Name,
		"description": payload.UpdateData.Description,
		"sections":    doc,
		"updated_at":  time.Now(),
	}
	if err := r.db.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		return nil, err
	}
	r.invalidate(ctx, tenantID, payload.TemplateID)

	refreshed, err := r.fetchRecord(ctx, tenantID, payload.TemplateID)
	if err != nil {
		return nil, err
	}
	return refreshed.ToModel()
}

// GetByID returns one template, read through the cache.
func (r *TemplateRepository) GetByID(ctx context.Context, tenantID, id string) (*models.ViewTemplate, error) {
	key := templateCacheKey(tenantID, id)
	var cached models.ViewTemplate
	if r.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	record, err := r.fetchRecord(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tpl, err := record.ToModel()
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, tpl, TemplateCacheTTL)
	return tpl, nil
}

// List returns all templates for a tenant, newest first.
func (r *TemplateRepository) List(ctx context.Context, tenantID string) ([]models.ViewTemplate, error) {
	key := templateListCacheKey(tenantID)
	var cached []models.ViewTemplate
	if r.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	var records []models.ViewTemplateRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	templates := make([]models.ViewTemplate, 0, len(records))
	for i := range records {
		tpl, err := records[i].ToModel()
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	r.cacheSet(ctx, key, templates, TemplateListCacheTTL)
	return templates, nil
}

// Delete removes a template entirely.
func (r *TemplateRepository) Delete(ctx context.Context, tenantID, id string) error {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return ErrTemplateNotFound
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.ViewTemplateRecord{}, "id = ?", templateID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	r.invalidate(ctx, tenantID, id)
	return nil
}

// SetDefaultFieldMapping writes or clears a template's default field mapping
// pointer. Subset validation against the mapping template happens in the
// service layer before this is called.
func (r *TemplateRepository) SetDefaultFieldMapping(ctx context.Context, tenantID, id string, dfm *models.DefaultFieldMapping) error {
	record, err := r.fetchRecord(ctx, tenantID, id)
	if err != nil {
		return err
	}
	var doc datatypes.JSON
	if dfm != nil {
		data, err := json.Marshal(dfm)
		if err != nil {
			return err
		}
		doc = datatypes.JSON(data)
	}
	err = r.db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"default_field_mapping": doc,
		"updated_at":            time.Now(),
	}).Error
	if err != nil {
		return err
	}
	r.invalidate(ctx, tenantID, id)
	return nil
}

// SetDefault marks one template as the tenant default, clearing the flag on
// every other template of the tenant in the same transaction.
func (r *TemplateRepository) SetDefault(ctx context.Context, tenantID, id string) error {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return ErrTemplateNotFound
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ViewTemplateRecord{}).
			Where("tenant_id = ?", tenantID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		result := tx.Model(&models.ViewTemplateRecord{}).
			Where("tenant_id = ? AND id = ?", tenantID, templateID).
			Update("is_default", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTemplateNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, tenantID, id)
	return nil
}

func (r *TemplateRepository) fetchRecord(ctx context.Context, tenantID, id string) (*models.ViewTemplateRecord, error) {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTemplateNotFound
	}
	var record models.ViewTemplateRecord
	err = r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, templateID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &record, nil
}
