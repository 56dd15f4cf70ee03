package handler

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ListUsers retrieves all platform users. Global admin only.
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.RequireGlobalAdmin(caller); err != nil {
		prometheus.RecordAuthzDecision("list_users", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("list_users", true)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := database.GetDB().Order("created_at").Find(&users); result.Error != nil {
		log.Error("Failed to retrieve users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}

	return c.JSON(http.StatusOK, users)
}

// CreateUser creates a platform user directly. Global admin only.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.RequireGlobalAdmin(caller); err != nil {
		prometheus.RecordAuthzDecision("create_user", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("create_user", true)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if !emailPattern.MatchString(req.Email) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
	}

	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	var existing model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existing); result.Error == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		IsAdmin:  req.IsAdmin,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	log.Info("User created by admin",
		zap.String("email", user.Email),
		zap.Uint("created_by", caller.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User created successfully",
		"user": map[string]interface{}{
			"id":       user.ID,
			"email":    user.Email,
			"is_admin": user.IsAdmin,
		},
	})
}

// DeleteUser removes a platform user and their memberships. Global admin only.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("user", "delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.RequireGlobalAdmin(caller); err != nil {
		prometheus.RecordAuthzDecision("delete_user", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_user", true)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if result := database.GetDB().Where("user_id = ?", id).Delete(&model.Membership{}); result.Error != nil {
		log.Error("Failed to delete memberships", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
	}

	result := database.GetDB().Delete(&model.User{}, id)
	if result.Error != nil {
		log.Error("Failed to delete user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete user"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	log.Info("User deleted by admin",
		zap.Uint64("user_id", id),
		zap.Uint("deleted_by", caller.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// GrantTaskPermission grants a user visibility of tasks assigned to a
// specific assignee. Global admin only. The first grant switches the user
// from default-open to restricted listing.
func GrantTaskPermission(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("task_permission", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.RequireGlobalAdmin(caller); err != nil {
		prometheus.RecordAuthzDecision("grant_task_permission", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("grant_task_permission", true)

	var req struct {
		UserID   uint   `json:"user_id"`
		Assignee string `json:"assignee"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.UserID == 0 || req.Assignee == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and assignee are required"})
	}

	var existing model.TaskPermission
	result := database.GetDB().Where("user_id = ? AND assignee = ?", req.UserID, req.Assignee).First(&existing)
	if result.Error == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission already granted"})
	}

	perm := model.TaskPermission{
		UserID:   req.UserID,
		Assignee: req.Assignee,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&perm); result.Error != nil {
		log.Error("Failed to grant task permission", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to grant permission"})
	}

	log.Info("Task permission granted",
		zap.Uint("user_id", req.UserID),
		zap.String("assignee", req.Assignee),
		zap.Uint("granted_by", caller.ID))
	return c.JSON(http.StatusCreated, perm)
}

// ListTaskPermissions retrieves a user's visibility grants. Global admin only.
func ListTaskPermissions(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.RequireGlobalAdmin(caller); err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var perms []model.TaskPermission
	if result := database.GetDB().Where("user_id = ?", id).Find(&perms); result.Error != nil {
		log.Error("Failed to retrieve task permissions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve permissions"})
	}

	return c.JSON(http.StatusOK, perms)
}
