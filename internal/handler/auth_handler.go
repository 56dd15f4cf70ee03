package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
	"dashboard-service/pkg/jwtutil"
	"dashboard-service/pkg/logger"
	"dashboard-service/prometheus"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Register creates a user account together with their own organization.
// An invite code, when supplied, grants account creation only: the invitee
// gets their own tenant, never a membership in the inviter's tenant.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	// Parse request
	var req struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		ConfirmPassword  string `json:"confirm_password"`
		OrganizationName string `json:"organization_name"`
		PIN              string `json:"pin"`
		InviteCode       string `json:"invite_code,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" || req.OrganizationName == "" {
		log.Error("Invalid registration data", zap.String("email", req.Email))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password and organization_name are required"})
	}

	if len(req.Password) < 8 {
		prometheus.RecordAuthError("password_too_short")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		prometheus.RecordAuthError("password_mismatch")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	if !pinPattern.MatchString(req.PIN) {
		prometheus.RecordAuthError("malformed_pin")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pin must be exactly 4 digits"})
	}

	// Validate the invite before creating anything
	var invite *model.Invite
	if req.InviteCode != "" {
		var found model.Invite
		result := database.GetDB().Where("code = ?", req.InviteCode).First(&found)
		if result.Error != nil {
			log.Error("Invite not found", zap.String("code", req.InviteCode))
			prometheus.RecordAuthError("invite_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
		}
		if found.Used {
			prometheus.RecordAuthError("invite_already_used")
			return c.JSON(http.StatusConflict, echo.Map{"error": "invite already used"})
		}
		invite = &found
	}

	// Check if user already exists - track DB query
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		log.Error("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	tenant := model.Tenant{
		Name: req.OrganizationName,
		PIN:  req.PIN,
	}

	// User, tenant and owner membership are created together
	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(&user); result.Error != nil {
			return result.Error
		}

		if result := tx.Create(&tenant); result.Error != nil {
			return result.Error
		}

		membership := model.Membership{
			UserID:   user.ID,
			TenantID: tenant.ID,
			IsOwner:  true,
		}
		if result := tx.Create(&membership); result.Error != nil {
			return result.Error
		}

		if invite != nil {
			if result := tx.Model(invite).Update("used", true); result.Error != nil {
				return result.Error
			}
		}

		return nil
	})
	if err != nil {
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", tenant.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		},
		"tenant": map[string]interface{}{
			"id":   tenant.ID,
			"name": tenant.Name,
		},
	})
}

// Login authenticates a user and issues a token. An explicit tenant_id is
// verified against the caller's memberships; otherwise the caller's first
// tenant is selected.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	// Parse request
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		TenantID *uint  `json:"tenant_id,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Verify password
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password))
	if err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Resolve tenant context: explicit choice or first membership
	var explicitTenantID uint
	if req.TenantID != nil {
		explicitTenantID = *req.TenantID
	}

	membership, err := authz.ResolveMembership(database.GetDB(), user.ID, explicitTenantID)
	if err != nil && err != authz.ErrNotAMember {
		log.Error("Failed to resolve membership", zap.Error(err))
		prometheus.RecordAuthError("db_error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if req.TenantID != nil && err == authz.ErrNotAMember {
		log.Error("User does not have access to the specified tenant",
			zap.String("email", req.Email),
			zap.Uint("tenant_id", *req.TenantID))
		prometheus.RecordAuthError("tenant_access_denied")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied to the specified tenant"})
	}

	var token string
	response := echo.Map{
		"user": map[string]interface{}{
			"id":       user.ID,
			"email":    user.Email,
			"is_admin": user.IsAdmin,
		},
	}

	if membership != nil {
		var tenant model.Tenant
		if result := database.GetDB().First(&tenant, membership.TenantID); result.Error != nil {
			log.Error("Tenant not found for membership", zap.Uint("tenant_id", membership.TenantID))
			prometheus.RecordAuthError("db_error")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}

		token, err = jwtutil.GenerateTokenWithTenant(user.Email, user.ID, user.IsAdmin, &membership.TenantID, tenant.Name)
		response["tenant"] = map[string]interface{}{
			"id":       tenant.ID,
			"name":     tenant.Name,
			"is_owner": membership.IsOwner,
		}
	} else {
		token, err = jwtutil.GenerateToken(user.Email, user.ID, user.IsAdmin)
	}

	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	response["token"] = token

	log.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, response)
}
