package enrich

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dashboard-service/internal/model"
)

func newImportDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Category{},
		&model.CategoryTemplate{},
		&model.Resource{},
		&model.ResourceTemplate{},
		&model.ResourceTemplateLink{},
	))
	return db
}

func seedTemplate(t *testing.T, db *gorm.DB) model.ResourceTemplate {
	t.Helper()
	catTpl := model.CategoryTemplate{Name: "Analytics", Description: "Analytics tools"}
	require.NoError(t, db.Create(&catTpl).Error)

	tpl := model.ResourceTemplate{
		Title:              "Metrics Inc",
		URL:                "https://metrics.example",
		Description:        "Dashboards for everything",
		CategoryTemplateID: &catTpl.ID,
	}
	require.NoError(t, db.Create(&tpl).Error)
	return tpl
}

func TestImportTemplate(t *testing.T) {
	t.Run("materializes category, resource and link", func(t *testing.T) {
		db := newImportDB(t)
		tpl := seedTemplate(t, db)

		resource, err := ImportTemplate(db, tpl.ID, 1, 10)
		require.NoError(t, err)

		assert.Equal(t, "Metrics Inc", resource.Title)
		assert.Equal(t, uint(1), resource.TenantID)
		assert.Equal(t, uint(10), resource.CreatorID)

		var category model.Category
		require.NoError(t, db.Where("tenant_id = ?", 1).First(&category).Error)
		assert.Equal(t, "Analytics", category.Name)
		require.NotNil(t, resource.CategoryID)
		assert.Equal(t, category.ID, *resource.CategoryID)

		var link model.ResourceTemplateLink
		require.NoError(t, db.Where("template_id = ? AND tenant_id = ?", tpl.ID, 1).First(&link).Error)
		assert.Equal(t, resource.ID, link.ResourceID)
	})

	t.Run("existing same-name category is reused", func(t *testing.T) {
		db := newImportDB(t)
		tpl := seedTemplate(t, db)

		existing := model.Category{TenantID: 1, Name: "Analytics", CreatorID: 5}
		require.NoError(t, db.Create(&existing).Error)

		resource, err := ImportTemplate(db, tpl.ID, 1, 10)
		require.NoError(t, err)
		require.NotNil(t, resource.CategoryID)
		assert.Equal(t, existing.ID, *resource.CategoryID)

		var count int64
		db.Model(&model.Category{}).Where("tenant_id = ?", 1).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("second import is a conflict", func(t *testing.T) {
		db := newImportDB(t)
		tpl := seedTemplate(t, db)

		_, err := ImportTemplate(db, tpl.ID, 1, 10)
		require.NoError(t, err)

		_, err = ImportTemplate(db, tpl.ID, 1, 10)
		assert.ErrorIs(t, err, ErrAlreadyImported)

		// A different tenant can still import.
		_, err = ImportTemplate(db, tpl.ID, 2, 10)
		assert.NoError(t, err)
	})

	t.Run("unknown template", func(t *testing.T) {
		db := newImportDB(t)
		_, err := ImportTemplate(db, 999, 1, 10)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("failed link insert rolls back the resource and category", func(t *testing.T) {
		db := newImportDB(t)
		tpl := seedTemplate(t, db)

		require.NoError(t, db.Callback().Create().Before("gorm:create").
			Register("fail_link_insert", func(tx *gorm.DB) {
				if _, ok := tx.Statement.Dest.(*model.ResourceTemplateLink); ok {
					tx.AddError(errors.New("link insert failed"))
				}
			}))

		_, err := ImportTemplate(db, tpl.ID, 1, 10)
		require.Error(t, err)

		var resources, categories, links int64
		db.Model(&model.Resource{}).Count(&resources)
		db.Model(&model.Category{}).Count(&categories)
		db.Model(&model.ResourceTemplateLink{}).Count(&links)
		assert.Zero(t, resources)
		assert.Zero(t, categories)
		assert.Zero(t, links)
	})

	t.Run("template without a category imports with nil category", func(t *testing.T) {
		db := newImportDB(t)
		tpl := model.ResourceTemplate{Title: "Plain Tool", URL: "https://plain.example"}
		require.NoError(t, db.Create(&tpl).Error)

		resource, err := ImportTemplate(db, tpl.ID, 1, 10)
		require.NoError(t, err)
		assert.Nil(t, resource.CategoryID)
	})
}
