package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// ListCategories retrieves all resource categories for the tenant
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("category", "list")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var categories []model.Category
	result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Order("name").Find(&categories)
	if result.Error != nil {
		log.Error("Failed to retrieve categories",
			zap.Error(result.Error),
			zap.Uint("tenant_id", membership.TenantID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve categories"})
	}

	return c.JSON(http.StatusOK, categories)
}

// CreateCategory adds a new category to the tenant. Any member may create.
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("category", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		TenantID    uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = tenantIDFromRequest(c)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionCreateCategory); err != nil {
		return deny(c, log, err)
	}

	// Check if category with same name exists in the same tenant
	var existing model.Category
	result := database.GetDB().Where("tenant_id = ? AND name = ?", membership.TenantID, req.Name).First(&existing)
	if result.Error == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "category already exists"})
	}

	category := model.Category{
		TenantID:    membership.TenantID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatorID:   caller.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&category); result.Error != nil {
		log.Error("Failed to create category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create category"})
	}

	log.Info("Category created",
		zap.String("name", category.Name),
		zap.Uint("tenant_id", category.TenantID))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates a category. Owners pass; for everyone else only an
// explicitly revoked admin flag denies.
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("category", "update")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category ID"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ImageURL    *string `json:"image_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionEditCategory); err != nil {
		prometheus.RecordAuthzDecision("edit_category", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("edit_category", true)

	var category model.Category
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&category)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&category).Updates(updates); result.Error != nil {
		log.Error("Failed to update category", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update category"})
	}

	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category; resources referencing it keep a dangling
// nil category rather than being deleted
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("category", "delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category ID"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionDeleteCategory); err != nil {
		prometheus.RecordAuthzDecision("delete_category", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_category", true)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Model(&model.Resource{}).
			Where("tenant_id = ? AND category_id = ?", membership.TenantID, id).
			Update("category_id", nil); result.Error != nil {
			return result.Error
		}

		result := tx.Where("id = ? AND tenant_id = ?", id, membership.TenantID).Delete(&model.Category{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}
	if err != nil {
		log.Error("Failed to delete category", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete category"})
	}

	log.Info("Category deleted",
		zap.Uint64("category_id", id),
		zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}
