package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hplatform/homework-api/internal/models"
)

func rbacTestContext(t *testing.T, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/submissions", nil)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	return c, w
}

func TestRequireRolesAllowsMatchingRole(t *testing.T) {
	c, w := rbacTestContext(t, &models.JWTClaims{UserID: "user-9", Role: models.RoleTeacher})

	RequireRoles(models.RoleTeacher)(c)
	require.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	c, w := rbacTestContext(t, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	RequireRoles(models.RoleTeacher)(c)
	require.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	c, w := rbacTestContext(t, nil)

	RequireRoles(models.RoleTeacher)(c)
	require.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
