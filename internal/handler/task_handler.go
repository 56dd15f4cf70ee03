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

// ListTasks retrieves the tenant's tasks, filtered by the caller's
// assignee-visibility grants. A caller with no grants sees everything.
func ListTasks(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("task", "list")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionViewTasks); err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tasks []model.Task
	result := database.GetDB().Where("tenant_id = ?", membership.TenantID).Order("created_at desc").Find(&tasks)
	if result.Error != nil {
		log.Error("Failed to retrieve tasks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tasks"})
	}

	granted, err := authz.GrantedAssignees(database.GetDB(), caller.ID)
	if err != nil {
		log.Error("Failed to retrieve task permissions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tasks"})
	}

	visible := authz.VisibleTasks(tasks, granted, caller.IsAdmin)

	log.Info("Tasks retrieved",
		zap.Uint("tenant_id", membership.TenantID),
		zap.Int("total", len(tasks)),
		zap.Int("visible", len(visible)))
	return c.JSON(http.StatusOK, visible)
}

// CreateTask adds a task to the tenant
func CreateTask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("task", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Assignee    string     `json:"assignee"`
		DueDate     *time.Time `json:"due_date"`
		TenantID    uint       `json:"tenant_id,omitempty"`
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

	if err := authz.Authorize(membership, authz.ActionCreateTask); err != nil {
		return deny(c, log, err)
	}

	if req.Status == "" {
		req.Status = model.TaskStatusOpen
	}

	task := model.Task{
		TenantID:    membership.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Assignee:    req.Assignee,
		DueDate:     req.DueDate,
		CreatorID:   caller.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&task); result.Error != nil {
		log.Error("Failed to create task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create task"})
	}

	log.Info("Task created",
		zap.Uint("task_id", task.ID),
		zap.Uint("tenant_id", task.TenantID))
	return c.JSON(http.StatusCreated, task)
}

// GetTask retrieves a single task within the caller's tenant scope
func GetTask(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var task model.Task
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&task)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask updates a task. The tenant is resolved implicitly from the
// caller's first membership when no explicit tenant is supplied.
func UpdateTask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("task", "update")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Assignee    *string    `json:"assignee"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, tenantIDFromRequest(c))
	if err != nil {
		return deny(c, log, err)
	}

	var task model.Task
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).First(&task)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Assignee != nil {
		updates["assignee"] = *req.Assignee
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&task).Updates(updates); result.Error != nil {
		log.Error("Failed to update task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update task"})
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task after the shared confirmation PIN matches
func DeleteTask(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("task", "delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
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
		prometheus.RecordAuthzDecision("delete_task", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_task", true)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().Where("id = ? AND tenant_id = ?", id, membership.TenantID).Delete(&model.Task{})
	if result.Error != nil {
		log.Error("Failed to delete task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete task"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}

	log.Info("Task deleted",
		zap.Uint64("task_id", id),
		zap.Uint("tenant_id", membership.TenantID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Task deleted successfully"})
}
