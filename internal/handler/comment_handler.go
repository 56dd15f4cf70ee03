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
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// ListComments retrieves the comments on a task in the caller's tenant scope
func ListComments(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	// The task must be in the caller's tenant scope
	var task model.Task
	result := database.GetDB().Where("id = ? AND tenant_id = ?", taskID, membership.TenantID).First(&task)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var comments []model.Comment
	if result := database.GetDB().Where("task_id = ?", taskID).Order("created_at").Find(&comments); result.Error != nil {
		log.Error("Failed to retrieve comments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve comments"})
	}

	return c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment to a task. The tenant is resolved implicitly
// when the caller belongs to more than one.
func CreateComment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("comment", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body is required"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	var task model.Task
	result := database.GetDB().Where("id = ? AND tenant_id = ?", taskID, membership.TenantID).First(&task)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	comment := model.Comment{
		TaskID:   uint(taskID),
		AuthorID: caller.ID,
		Body:     req.Body,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&comment); result.Error != nil {
		log.Error("Failed to create comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create comment"})
	}

	log.Info("Comment created",
		zap.Uint64("task_id", taskID),
		zap.Uint("author_id", caller.ID))
	return c.JSON(http.StatusCreated, comment)
}
