package enrich

import (
	"errors"

	"gorm.io/gorm"

	"dashboard-service/internal/model"
)

var (
	// ErrTemplateNotFound indicates the resource template does not exist.
	ErrTemplateNotFound = errors.New("resource template not found")
	// ErrAlreadyImported indicates the template was already imported into the tenant.
	ErrAlreadyImported = errors.New("template already imported into this organization")
)

// ImportTemplate copies a library resource template into a tenant: the
// template's category is materialized as a tenant category unless an
// equivalently-named one exists (case-sensitive match), the resource row is
// created, and a link record makes re-imports detectable. The writes run in
// one transaction so a failed link insert leaves no orphan resource.
func ImportTemplate(db *gorm.DB, templateID, tenantID, creatorID uint) (*model.Resource, error) {
	var template model.ResourceTemplate
	result := db.Preload("CategoryTemplate").First(&template, templateID)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrTemplateNotFound
		}
		return nil, result.Error
	}

	var existing model.ResourceTemplateLink
	result = db.Where("template_id = ? AND tenant_id = ?", templateID, tenantID).First(&existing)
	if result.Error == nil {
		return nil, ErrAlreadyImported
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	var resource model.Resource
	err := db.Transaction(func(tx *gorm.DB) error {
		var categoryID *uint

		if template.CategoryTemplate != nil {
			var category model.Category
			result := tx.Where("tenant_id = ? AND name = ?", tenantID, template.CategoryTemplate.Name).First(&category)
			if result.Error == gorm.ErrRecordNotFound {
				category = model.Category{
					TenantID:    tenantID,
					Name:        template.CategoryTemplate.Name,
					Description: template.CategoryTemplate.Description,
					ImageURL:    template.CategoryTemplate.ImageURL,
					CreatorID:   creatorID,
				}
				if result := tx.Create(&category); result.Error != nil {
					return result.Error
				}
			} else if result.Error != nil {
				return result.Error
			}
			categoryID = &category.ID
		}

		resource = model.Resource{
			TenantID:    tenantID,
			Title:       template.Title,
			URL:         template.URL,
			Description: template.Description,
			ImageURL:    template.ImageURL,
			CategoryID:  categoryID,
			CreatorID:   creatorID,
		}
		if result := tx.Create(&resource); result.Error != nil {
			return result.Error
		}

		link := model.ResourceTemplateLink{
			TemplateID: template.ID,
			TenantID:   tenantID,
			ResourceID: resource.ID,
		}
		if result := tx.Create(&link); result.Error != nil {
			return result.Error
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &resource, nil
}
