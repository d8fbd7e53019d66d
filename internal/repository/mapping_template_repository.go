package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"pim-service/internal/models"
)

const (
	MappingTemplateCacheTTL = 5 * time.Minute
	mappingCacheKeyPrefix   = "pim:mapping-templates:"
)

// ErrMappingTemplateNotFound is returned when a mapping template id does not
// resolve for the tenant.
var ErrMappingTemplateNotFound = errors.New("field mapping template not found")

// MappingTemplateRepository persists field mapping templates. Templates are
// shared by reference: views store only the template id, so an update here is
// immediately visible to every view pointing at it.
type MappingTemplateRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewMappingTemplateRepository creates a new mapping template repository. The
// Redis client may be nil; caching is then disabled.
func NewMappingTemplateRepository(db *gorm.DB, redisClient *redis.Client) *MappingTemplateRepository {
	return &MappingTemplateRepository{db: db, redis: redisClient}
}

func mappingTemplateCacheKey(tenantID, id string) string {
	return fmt.Sprintf("%s%s:%s", mappingCacheKeyPrefix, tenantID, id)
}

func mappingTemplateListCacheKey(tenantID string) string {
	return fmt.Sprintf("%slist:%s", mappingCacheKeyPrefix, tenantID)
}

func (r *MappingTemplateRepository) invalidate(ctx context.Context, tenantID, id string) {
	if r.redis == nil {
		return
	}
	keys := []string{mappingTemplateListCacheKey(tenantID)}
	if id != "" {
		keys = append(keys, mappingTemplateCacheKey(tenantID, id))
	}
	r.redis.Del(ctx, keys...)
}

// Create persists a new mapping template and returns it with its assigned id.
func (r *MappingTemplateRepository) Create(ctx context.Context, template *models.FieldMappingTemplate) (*models.FieldMappingTemplate, error) {
	record, err := models.FromMappingTemplate(template)
	if err != nil {
		return nil, err
	}
	record.ID = uuid.UUID{}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	r.invalidate(ctx, template.TenantID, "")
	return record.ToModel()
}

// Update overwrites a persisted mapping template in place.
func (r *MappingTemplateRepository) Update(ctx context.Context, template *models.FieldMappingTemplate) (*models.FieldMappingTemplate, error) {
	if !template.ID.Persisted() {
		return nil, ErrMappingTemplateNotFound
	}
	record, err := models.FromMappingTemplate(template)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":        record.Name,
		"category":    record.Category,
		"category_id": record.CategoryID,
		"description": record.Description,
		"retailers":   record.Retailers,
		"mappings":    record.Mappings,
		"updated_at":  time.Now(),
	}
	result := r.db.WithContext(ctx).
		Model(&models.FieldMappingTemplateRecord{}).
		Where("tenant_id = ? AND id = ?", template.TenantID, record.ID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMappingTemplateNotFound
	}
	r.invalidate(ctx, template.TenantID, template.ID.Saved())
	return r.GetByID(ctx, template.TenantID, template.ID.Saved())
}

// GetByID returns one mapping template, read through the cache.
func (r *MappingTemplateRepository) GetByID(ctx context.Context, tenantID, id string) (*models.FieldMappingTemplate, error) {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrMappingTemplateNotFound
	}

	key := mappingTemplateCacheKey(tenantID, id)
	if r.redis != nil {
		if data, err := r.redis.Get(ctx, key).Bytes(); err == nil {
			var record models.FieldMappingTemplateRecord
			if json.Unmarshal(data, &record) == nil {
				return record.ToModel()
			}
		}
	}

	var record models.FieldMappingTemplateRecord
	err = r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, templateID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingTemplateNotFound
		}
		return nil, err
	}
	if r.redis != nil {
		if data, err := json.Marshal(record); err == nil {
			r.redis.Set(ctx, key, data, MappingTemplateCacheTTL)
		}
	}
	return record.ToModel()
}

// List returns all mapping templates for a tenant, newest first.
func (r *MappingTemplateRepository) List(ctx context.Context, tenantID string) ([]models.FieldMappingTemplate, error) {
	var records []models.FieldMappingTemplateRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	templates := make([]models.FieldMappingTemplate, 0, len(records))
	for i := range records {
		tpl, err := records[i].ToModel()
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, nil
}

// Delete removes a mapping template. Views referencing it keep their dangling
// pointer; resolution treats a missing template as unassigned.
func (r *MappingTemplateRepository) Delete(ctx context.Context, tenantID, id string) error {
	templateID, err := uuid.Parse(id)
	if err != nil {
		return ErrMappingTemplateNotFound
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.FieldMappingTemplateRecord{}, "id = ?", templateID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMappingTemplateNotFound
	}
	r.invalidate(ctx, tenantID, id)
	return nil
}
