package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/llm"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// DraftEmail asks the completion service to write an email, optionally
// seeded from one of the tenant's saved prompts
func DraftEmail(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("email", "draft")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Instruction string `json:"instruction"`
		PromptID    *uint  `json:"prompt_id,omitempty"`
		Recipient   string `json:"recipient,omitempty"`
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

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantID)
	if err != nil {
		return deny(c, log, err)
	}

	system := "You write concise professional business emails. Respond with a JSON object with keys subject and body."
	if req.PromptID != nil {
		var prompt model.EmailPrompt
		result := database.GetDB().Where("id = ? AND tenant_id = ?", *req.PromptID, membership.TenantID).First(&prompt)
		if result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "prompt not found"})
		}
		system = fmt.Sprintf("%s Base the email on this saved prompt.\nSubject: %s\nBody: %s", system, prompt.Subject, prompt.Body)
	}

	user := req.Instruction
	if req.Recipient != "" {
		user = fmt.Sprintf("Recipient: %s\n%s", req.Recipient, user)
	}

	answer, err := llmClient.Complete(c.Request().Context(), []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, cfg.AI.MaxTokens, true)
	if err != nil {
		log.Error("Email drafting failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "email drafting failed"})
	}

	log.Info("Email drafted", zap.Uint("user_id", caller.ID), zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"draft": answer})
}
