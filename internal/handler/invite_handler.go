package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// CreateInvite issues an invite code for an email address. The invite grants
// account creation only, never membership in the inviter's tenant.
func CreateInvite(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("invite", "create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	invite := model.Invite{
		Code:      uuid.New().String(),
		Email:     req.Email,
		CreatorID: caller.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&invite); result.Error != nil {
		log.Error("Failed to create invite", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create invite"})
	}

	log.Info("Invite created",
		zap.String("email", invite.Email),
		zap.Uint("creator_id", caller.ID))
	return c.JSON(http.StatusCreated, invite)
}

// GetInvite looks up an invite by code. Public, used by the signup form.
func GetInvite(c echo.Context) error {
	log := logger.FromContext(c)

	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invite model.Invite
	result := database.GetDB().Where("code = ?", code).First(&invite)
	if result.Error != nil {
		log.Warn("Invite not found", zap.String("code", code))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
	}

	if invite.Used {
		return c.JSON(http.StatusConflict, echo.Map{"error": "invite already used"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"code":  invite.Code,
		"email": invite.Email,
	})
}
