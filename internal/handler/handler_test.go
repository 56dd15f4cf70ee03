package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newTestContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestTenantIDFromRequest(t *testing.T) {
	t.Run("token tenant context wins over query", func(t *testing.T) {
		c := newTestContext("/api/resources?tenant_id=9")
		c.Set("tenant_id", uint(7))
		assert.Equal(t, uint(7), tenantIDFromRequest(c))
	})

	t.Run("query parameter when token carries no tenant", func(t *testing.T) {
		c := newTestContext("/api/resources?tenant_id=9")
		assert.Equal(t, uint(9), tenantIDFromRequest(c))
	})

	t.Run("zero means unspecified", func(t *testing.T) {
		c := newTestContext("/api/resources")
		assert.Equal(t, uint(0), tenantIDFromRequest(c))
	})

	t.Run("unparsable query parameter ignored", func(t *testing.T) {
		c := newTestContext("/api/resources?tenant_id=abc")
		assert.Equal(t, uint(0), tenantIDFromRequest(c))
	})
}
