package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dashboard-service/internal/model"
	"dashboard-service/pkg/database"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Tenant{},
		&model.Membership{},
		&model.Invite{},
	))
	database.DB = db
	return db
}

func postJSON(t *testing.T, h echo.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("logger", zap.NewNop())
	require.NoError(t, h(c))
	return rec
}

// seedInviter creates an existing user with their own tenant and an open
// invite, returning the invite and the inviter's tenant.
func seedInviter(t *testing.T, db *gorm.DB) (model.Invite, model.Tenant) {
	t.Helper()
	inviter := model.User{Email: "owner@example.com", Password: "hash"}
	require.NoError(t, db.Create(&inviter).Error)

	tenant := model.Tenant{Name: "Acme Corp", PIN: "4821"}
	require.NoError(t, db.Create(&tenant).Error)
	require.NoError(t, db.Create(&model.Membership{
		UserID:   inviter.ID,
		TenantID: tenant.ID,
		IsOwner:  true,
	}).Error)

	invite := model.Invite{
		Code:      "7f9c2f40-1111-2222-3333-444455556666",
		Email:     "newcomer@example.com",
		CreatorID: inviter.ID,
	}
	require.NoError(t, db.Create(&invite).Error)
	return invite, tenant
}

func TestRegister_WithInvite(t *testing.T) {
	db := setupAuthTestDB(t)
	invite, inviterTenant := seedInviter(t, db)

	rec := postJSON(t, Register, "/auth/register",
		`{"email":"newcomer@example.com","password":"longenough","organization_name":"Newcomer Org","pin":"1234","invite_code":"`+invite.Code+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored model.Invite
	require.NoError(t, db.First(&stored, invite.ID).Error)
	assert.True(t, stored.Used)

	var user model.User
	require.NoError(t, db.Where("email = ?", "newcomer@example.com").First(&user).Error)

	// The invite grants account creation only: the invitee owns exactly one
	// tenant of their own and holds no membership in the inviter's tenant.
	var memberships []model.Membership
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&memberships).Error)
	require.Len(t, memberships, 1)
	assert.True(t, memberships[0].IsOwner)
	assert.NotEqual(t, inviterTenant.ID, memberships[0].TenantID)

	var ownTenant model.Tenant
	require.NoError(t, db.First(&ownTenant, memberships[0].TenantID).Error)
	assert.Equal(t, "Newcomer Org", ownTenant.Name)
}

func TestRegister_UsedInvite(t *testing.T) {
	db := setupAuthTestDB(t)
	invite, _ := seedInviter(t, db)
	require.NoError(t, db.Model(&model.Invite{}).Where("id = ?", invite.ID).Update("used", true).Error)

	rec := postJSON(t, Register, "/auth/register",
		`{"email":"newcomer@example.com","password":"longenough","organization_name":"Newcomer Org","pin":"1234","invite_code":"`+invite.Code+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	db.Model(&model.User{}).Where("email = ?", "newcomer@example.com").Count(&count)
	assert.Zero(t, count)
}

func TestRegister_UnknownInvite(t *testing.T) {
	setupAuthTestDB(t)

	rec := postJSON(t, Register, "/auth/register",
		`{"email":"newcomer@example.com","password":"longenough","organization_name":"Newcomer Org","pin":"1234","invite_code":"no-such-code"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupAuthTestDB(t)
	require.NoError(t, db.Create(&model.User{Email: "taken@example.com", Password: "hash"}).Error)

	rec := postJSON(t, Register, "/auth/register",
		`{"email":"taken@example.com","password":"longenough","organization_name":"Another Org","pin":"1234"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
