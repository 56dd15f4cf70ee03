package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/enrich"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// ListResources retrieves the tenant's resources
func ListResources(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "list")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionViewResources); err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var resources []model.Resource
	result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Order("created_at desc").Find(&resources)
	if result.Error != nil {
		log.Error("Failed to retrieve resources", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve resources"})
	}

	return c.JSON(http.StatusOK, resources)
}

// CreateResource adds a resource to the tenant
func CreateResource(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		CategoryID  *uint  `json:"category_id"`
		TenantID    uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = tenantIDFromRequest(c)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionCreateResource); err != nil {
		return deny(c, log, err)
	}

	// A category reference must point at a category of the same tenant
	if req.CategoryID != nil {
		var category model.Category
		result := database.GetDB().Where("id = ? AND tenant_id = ?", *req.CategoryID, membership.TenantID).First(&category)
		if result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
	}

	resource := model.Resource{
		TenantID:    membership.TenantID,
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		CreatorID:   caller.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&resource); result.Error != nil {
		log.Error("Failed to create resource", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create resource"})
	}

	log.Info("Resource created",
		zap.Uint("resource_id", resource.ID),
		zap.Uint("tenant_id", resource.TenantID))
	return c.JSON(http.StatusCreated, resource)
}

// UpdateResource updates a resource in the caller's tenant scope
func UpdateResource(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "update")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource ID"})
	}

	var req struct {
		Title       *string `json:"title"`
		URL         *string `json:"url"`
		Description *string `json:"description"`
		ImageURL    *string `json:"image_url"`
		CategoryID  *uint   `json:"category_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	var resource model.Resource
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&resource)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.URL != nil {
		updates["url"] = *req.URL
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.CategoryID != nil {
		var category model.Category
		result := database.GetDB().Where("id = ? AND tenant_id = ?", *req.CategoryID, membership.TenantID).First(&category)
		if result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		updates["category_id"] = *req.CategoryID
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&resource).Updates(updates); result.Error != nil {
		log.Error("Failed to update resource", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update resource"})
	}

	return c.JSON(http.StatusOK, resource)
}

// DeleteResource removes a resource after the shared confirmation PIN matches
func DeleteResource(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource ID"})
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.CheckDeletePIN(req.PIN, cfg.Confirm.DeletePIN); err != nil {
		prometheus.RecordAuthzDecision("delete_resource", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_resource", true)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).Delete(&model.Resource{})
	if result.Error != nil {
		log.Error("Failed to delete resource", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete resource"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	}

	log.Info("Resource deleted",
		zap.Uint64("resource_id", id),
		zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Resource deleted successfully"})
}

// SuggestResource runs the enrichment pipeline for a company name or URL and
// returns a resource draft without persisting anything
func SuggestResource(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "suggest")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		CompanyName string `json:"companyName"`
		TenantID    uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.CompanyName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "companyName is required"})
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = tenantIDFromRequest(c)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID)
	if err != nil {
		return deny(c, log, err)
	}

	var categories []model.Category
	if result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Find(&categories); result.Error != nil {
		log.Error("Failed to retrieve categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve categories"})
	}

	// Carry the request-scoped logger into the pipeline.
	ctx := logger.WithContext(c.Request().Context(), log)

	start := time.Now()
	suggestion, err := enricher.Suggest(ctx, req.CompanyName, categories)
	prometheus.EnrichmentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("Enrichment failed",
			zap.String("company", req.CompanyName),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	log.Info("Resource suggestion generated",
		zap.String("company", req.CompanyName),
		zap.String("url", suggestion.URL),
		zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{
		"title":       suggestion.Title,
		"description": suggestion.Description,
		"url":         suggestion.URL,
		"image_url":   suggestion.ImageURL,
		"category_id": suggestion.CategoryID,
		"tenant_id":   membership.TenantID,
	})
}

// ListResourceTemplates retrieves the resource library, flagging templates
// the tenant has already imported
func ListResourceTemplates(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var templates []model.ResourceTemplate
	if result := database.GetDB().Preload("CategoryTemplate").Find(&templates); result.Error != nil {
		log.Error("Failed to retrieve resource templates", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve templates"})
	}

	var links []model.ResourceTemplateLink
	if result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Find(&links); result.Error != nil {
		log.Error("Failed to retrieve template links", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve templates"})
	}

	imported := make(map[uint]bool, len(links))
	for _, l := range links {
		imported[l.TemplateID] = true
	}

	type TemplateResponse struct {
		model.ResourceTemplate
		Imported bool `json:"imported"`
	}

	response := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		response = append(response, TemplateResponse{ResourceTemplate: t, Imported: imported[t.ID]})
	}

	return c.JSON(http.StatusOK, response)
}

// ImportResourceTemplate copies a library template into the caller's tenant
func ImportResourceTemplate(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("resource", "import")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	templateID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template ID"})
	}

	var req struct {
		TenantID uint `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = tenantIDFromRequest(c)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionCreateResource); err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	resource, err := enrich.ImportTemplate(database.GetDB(), uint(templateID), membership.TenantID, caller.ID)
	if err != nil {
		switch err {
		case enrich.ErrTemplateNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case enrich.ErrAlreadyImported:
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		default:
			log.Error("Template import failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "template import failed"})
		}
	}

	log.Info("Template imported",
		zap.Uint64("template_id", templateID),
		zap.Uint("tenant_id", membership.TenantID),
		zap.Uint("resource_id", resource.ID))
	return c.JSON(http.StatusCreated, resource)
}
