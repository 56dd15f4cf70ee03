package authz

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"dashboard-service/internal/model"
)

// Caller is the authenticated identity behind a request
type Caller struct {
	ID      uint
	Email   string
	IsAdmin bool // platform-wide admin flag
}

// ResolveCaller reads the caller identity placed on the context by the auth
// middleware. Absence fails closed as ErrUnauthenticated.
func ResolveCaller(c echo.Context) (Caller, error) {
	userID, ok := c.Get("user_id").(uint)
	if !ok || userID == 0 {
		return Caller{}, ErrUnauthenticated
	}

	email, _ := c.Get("email").(string)
	isAdmin, _ := c.Get("is_admin").(bool)

	return Caller{ID: userID, Email: email, IsAdmin: isAdmin}, nil
}

// ResolveMembership looks up the caller's membership in the given tenant.
// A tenantID of zero resolves the caller's first membership, ordered by
// creation time so the implicit choice is deterministic. Several routes rely
// on this implicit scoping when the caller belongs to more than one tenant.
func ResolveMembership(db *gorm.DB, userID, tenantID uint) (*model.Membership, error) {
	var m model.Membership

	query := db.Where("user_id = ?", userID)
	if tenantID != 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}

	result := query.Order("created_at, id").First(&m)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotAMember
		}
		return nil, result.Error
	}

	return &m, nil
}

// OwnedTenantCount counts tenants the user owns, for the deletion guard
func OwnedTenantCount(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	result := db.Model(&model.Membership{}).
		Where("user_id = ? AND is_owner = ?", userID, true).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GrantedAssignees returns the assignee emails the user has been granted
// visibility for. An empty slice means no restriction is configured.
func GrantedAssignees(db *gorm.DB, userID uint) ([]string, error) {
	var perms []model.TaskPermission
	if result := db.Where("user_id = ?", userID).Find(&perms); result.Error != nil {
		return nil, result.Error
	}

	assignees := make([]string, 0, len(perms))
	for _, p := range perms {
		assignees = append(assignees, p.Assignee)
	}
	return assignees, nil
}
