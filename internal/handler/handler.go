package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dashboard-service/internal/authz"
	"dashboard-service/internal/enrich"
	"dashboard-service/pkg/config"
	"dashboard-service/pkg/llm"
)

// Package-level dependencies, set once at startup
var (
	cfg       *config.Config
	enricher  *enrich.Enricher
	llmClient *llm.Client
)

// Initialize sets the handler package dependencies
func Initialize(c *config.Config, e *enrich.Enricher, l *llm.Client) {
	cfg = c
	enricher = e
	llmClient = l
}

// denialStatus maps an authorization error to its HTTP status
func denialStatus(err error) int {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, authz.ErrNotAMember),
		errors.Is(err, authz.ErrMemberRequired),
		errors.Is(err, authz.ErrOwnerRequired),
		errors.Is(err, authz.ErrAdminRevoked),
		errors.Is(err, authz.ErrCreatorOnly),
		errors.Is(err, authz.ErrGlobalAdminRequired),
		errors.Is(err, authz.ErrNameMismatch),
		errors.Is(err, authz.ErrPINMismatch),
		errors.Is(err, authz.ErrLastTenant),
		errors.Is(err, authz.ErrUnknownAction):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// deny writes the denial response for an authorization error
func deny(c echo.Context, log *zap.Logger, err error) error {
	status := denialStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("Authorization check failed", zap.Error(err))
		return c.JSON(status, echo.Map{"error": "database error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// tenantIDFromRequest resolves an explicit tenant choice from the token
// context, a query parameter or a path parameter. Zero means unspecified and
// callers fall back to implicit first-tenant resolution.
func tenantIDFromRequest(c echo.Context) uint {
	if id, ok := c.Get("tenant_id").(uint); ok && id != 0 {
		return id
	}
	if raw := c.QueryParam("tenant_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			return uint(id)
		}
	}
	return 0
}
