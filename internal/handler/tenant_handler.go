package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/jwtutil"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

// CreateTenant handles organization creation by an existing user
func CreateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("create")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	// Parse request
	var req struct {
		Name      string `json:"name"`
		PIN       string `json:"pin"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if !pinPattern.MatchString(req.PIN) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pin must be exactly 4 digits"})
	}

	tenant := model.Tenant{
		Name:      req.Name,
		PIN:       req.PIN,
		AvatarURL: req.AvatarURL,
	}

	// Tenant and owner membership are created atomically
	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&tenant); result.Error != nil {
			return result.Error
		}

		membership := model.Membership{
			UserID:   caller.ID,
			TenantID: tenant.ID,
			IsOwner:  true,
		}
		if result := tx.Create(&membership); result.Error != nil {
			return result.Error
		}

		return nil
	})
	if err != nil {
		log.Error("Failed to create tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant creation failed"})
	}

	log.Info("Tenant created",
		zap.String("name", tenant.Name),
		zap.Uint("id", tenant.ID),
		zap.Uint("owner_id", caller.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Organization created successfully",
		"tenant":  tenant,
	})
}

// ListUserTenants retrieves all tenants the caller belongs to
func ListUserTenants(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("list")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.Membership
	result := database.GetDB().Preload("Tenant").
		Where("user_id = ?", caller.ID).
		Order("created_at, id").
		Find(&memberships)
	if result.Error != nil {
		log.Error("Failed to retrieve user's tenants", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve organizations"})
	}

	// Format response
	type TenantResponse struct {
		ID        uint      `json:"id"`
		Name      string    `json:"name"`
		AvatarURL string    `json:"avatar_url"`
		IsOwner   bool      `json:"is_owner"`
		IsAdmin   *bool     `json:"is_admin"`
		CreatedAt time.Time `json:"created_at"`
	}

	response := make([]TenantResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, TenantResponse{
			ID:        m.TenantID,
			Name:      m.Tenant.Name,
			AvatarURL: m.Tenant.AvatarURL,
			IsOwner:   m.IsOwner,
			IsAdmin:   m.IsAdmin,
			CreatedAt: m.Tenant.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// GetTenant retrieves tenant details for a member
func GetTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("access")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	if _, err := authz.ResolveMembership(database.GetDB(), caller.ID, uint(id)); err != nil {
		log.Warn("Unauthorized tenant access attempt",
			zap.Uint("requesting_user_id", caller.ID),
			zap.Uint64("tenant_id", id))
		return deny(c, log, err)
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		log.Error("Tenant not found", zap.Uint64("id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
	}

	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant deletes an organization. The caller must own it, confirm its
// exact name and PIN, and own at least one other organization.
func DeleteTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("delete")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	var req struct {
		ConfirmName string `json:"confirm_name"`
		ConfirmPIN  string `json:"confirm_pin"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, uint(id))
	if err != nil {
		return deny(c, log, err)
	}

	ownedCount, err := authz.OwnedTenantCount(database.GetDB(), caller.ID)
	if err != nil {
		log.Error("Failed to count owned tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := authz.CanDeleteTenant(membership, &tenant, req.ConfirmName, req.ConfirmPIN, ownedCount); err != nil {
		prometheus.RecordAuthzDecision("delete_tenant", false)
		log.Warn("Tenant deletion denied",
			zap.Uint("user_id", caller.ID),
			zap.Uint("tenant_id", tenant.ID),
			zap.Error(err))
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("delete_tenant", true)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("tenant_id = ?", tenant.ID).Delete(&model.Membership{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Delete(&tenant); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deletion failed"})
	}

	log.Info("Tenant deleted",
		zap.Uint("tenant_id", tenant.ID),
		zap.Uint("user_id", caller.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Organization deleted successfully"})
}

// ListMembers retrieves all members of a tenant
func ListMembers(c echo.Context) error {
	log := logger.FromContext(c)

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	if _, err := authz.ResolveMembership(database.GetDB(), caller.ID, uint(id)); err != nil {
		return deny(c, log, err)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.Membership
	result := database.GetDB().Preload("User").
		Where("tenant_id = ?", id).
		Order("created_at, id").
		Find(&memberships)
	if result.Error != nil {
		log.Error("Failed to retrieve members", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve members"})
	}

	type MemberResponse struct {
		UserID  uint   `json:"user_id"`
		Email   string `json:"email"`
		IsOwner bool   `json:"is_owner"`
		IsAdmin *bool  `json:"is_admin"`
	}

	response := make([]MemberResponse, 0, len(memberships))
	for _, m := range memberships {
		response = append(response, MemberResponse{
			UserID:  m.UserID,
			Email:   m.User.Email,
			IsOwner: m.IsOwner,
			IsAdmin: m.IsAdmin,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// UpdateMemberRole changes another member's role flags. Owner only. There is
// no guard against an owner clearing their own admin flag.
func UpdateMemberRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("update_role")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	tenantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	targetUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	// Raw fields so an absent is_admin key is distinguishable from an
	// explicit null: only supplied keys reach the update.
	var fields map[string]json.RawMessage
	if err := c.Bind(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates, err := roleUpdates(fields)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_admin or is_owner is required"})
	}

	membership, err := authz.ResolveMembership(database.GetDB(), caller.ID, uint(tenantID))
	if err != nil {
		return deny(c, log, err)
	}

	if err := authz.Authorize(membership, authz.ActionUpdateMemberRole); err != nil {
		prometheus.RecordAuthzDecision("update_member_role", false)
		return deny(c, log, err)
	}
	prometheus.RecordAuthzDecision("update_member_role", true)

	var target model.Membership
	result := database.GetDB().Where("user_id = ? AND tenant_id = ?", targetUserID, tenantID).First(&target)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&target).Updates(updates); result.Error != nil {
		log.Error("Failed to update member role", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update role"})
	}

	log.Info("Member role updated",
		zap.Uint64("tenant_id", tenantID),
		zap.Uint64("target_user_id", targetUserID),
		zap.Uint("updated_by", caller.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Role updated successfully",
		"member":  target,
	})
}

// roleUpdates maps the supplied role fields onto column updates. An omitted
// is_admin key leaves the stored flag untouched; an explicit null clears it
// back to the unset state, which counts as admin for category actions.
func roleUpdates(fields map[string]json.RawMessage) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if raw, ok := fields["is_admin"]; ok {
		var isAdmin *bool
		if err := json.Unmarshal(raw, &isAdmin); err != nil {
			return nil, err
		}
		updates["is_admin"] = isAdmin
	}

	if raw, ok := fields["is_owner"]; ok {
		var isOwner bool
		if err := json.Unmarshal(raw, &isOwner); err != nil {
			return nil, err
		}
		updates["is_owner"] = isOwner
	}

	return updates, nil
}

// SwitchTenant issues a new token scoped to a different tenant
func SwitchTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordTenantOperation("switch")

	caller, err := authz.ResolveCaller(c)
	if err != nil {
		return deny(c, log, err)
	}

	var req struct {
		TenantID uint `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.TenantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
	}

	if _, err := authz.ResolveMembership(database.GetDB(), caller.ID, req.TenantID); err != nil {
		return deny(c, log, err)
	}

	var tenant model.Tenant
	if result := database.GetDB().First(&tenant, req.TenantID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
	}

	token, err := jwtutil.GenerateTokenWithTenant(caller.Email, caller.ID, caller.IsAdmin, &req.TenantID, tenant.Name)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Tenant switched",
		zap.Uint("user_id", caller.ID),
		zap.Uint("tenant_id", req.TenantID))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"tenant": map[string]interface{}{
			"id":   tenant.ID,
			"name": tenant.Name,
		},
	})
}
