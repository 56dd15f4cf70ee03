package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/llm"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// ListPrompts retrieves the tenant's email prompts
func ListPrompts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("prompt", "list")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionViewPrompts); err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var prompts []model.EmailPrompt
	result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Order("created_at desc").Find(&prompts)
	if result.Error != nil {
		log.Error("Failed to retrieve prompts", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve prompts"})
	}

	return c.JSON(http.StatusOK, prompts)
}

// CreatePrompt adds an email prompt to the tenant
func CreatePrompt(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("prompt", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Name     string `json:"name"`
		Subject  string `json:"subject"`
		Body     string `json:"body"`
		TenantID uint   `json:"tenant_id,omitempty"`
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

	if err := authz.Authorize(membership, authz.ActionCreatePrompt); err != nil {
		return deny(c, log, err)
	}

	prompt := model.EmailPrompt{
		TenantID:  membership.TenantID,
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatorID: caller.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&prompt); result.Error != nil {
		log.Error("Failed to create prompt", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create prompt"})
	}

	log.Info("Prompt created",
		zap.Uint("prompt_id", prompt.ID),
		zap.Uint("tenant_id", prompt.TenantID))
	return c.JSON(http.StatusCreated, prompt)
}

// UpdatePrompt updates a prompt. Only the original creator may change it,
// regardless of tenant role.
func UpdatePrompt(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("prompt", "update")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid prompt ID"})
	}

	var req struct {
		Name    *string `json:"name"`
		Subject *string `json:"subject"`
		Body    *string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	var prompt model.EmailPrompt
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&prompt)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
	}

	if err := authz.RequireCreator(prompt.CreatorID, caller.ID); err != nil {
		prometheus.RecordAuthzDecision("edit_prompt", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("edit_prompt", true)

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&prompt).Updates(updates); result.Error != nil {
		log.Error("Failed to update prompt", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update prompt"})
	}

	return c.JSON(http.StatusOK, prompt)
}

// DeletePrompt removes a prompt. Creator only.
func DeletePrompt(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("prompt", "delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid prompt ID"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	var prompt model.EmailPrompt
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&prompt)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
	}

	if err := authz.RequireCreator(prompt.CreatorID, caller.ID); err != nil {
		prometheus.RecordAuthzDecision("delete_prompt", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_prompt", true)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Delete(&prompt); result.Error != nil {
		log.Error("Failed to delete prompt", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete prompt"})
	}

	log.Info("Prompt deleted",
		zap.Uint("prompt_id", prompt.ID),
		zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Prompt deleted successfully"})
}

// GeneratePrompt asks the completion service to draft an email prompt from a
// short instruction, without persisting anything
func GeneratePrompt(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("prompt", "generate")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Instruction string `json:"instruction"`
		TenantID    uint   `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Instruction == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "instruction is required"})
	}

	tenantID := req.TenantID
	if tenantID == 0 {
		tenantID = tenantIDFromRequest(c)
	}

	if _, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID); err != nil {
		return deny(c, log, err)
	}

	answer, err := llmClient.Complete(c.Request().Context(), []llm.Message{
		{Role: "system", Content: "You draft reusable business email prompts. Respond with a JSON object with keys name, subject and body."},
		{Role: "user", Content: req.Instruction},
	}, cfg.AI.MaxTokens, true)
	if err != nil {
		log.Error("Prompt generation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "prompt generation failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"draft": answer})
}
