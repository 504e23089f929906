package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledgerpay/internal/logger"
	"ledgerpay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var secret = []byte("middleware-secret")

type versionsStub map[uint]int

func (v versionsStub) TokenVersion(_ context.Context, userID uint) (int, error) {
	version, ok := v[userID]
	if !ok {
		return 0, errors.New("unknown user")
	}
	return version, nil
}

func user(id uint, role string) *models.User {
	return &models.User{Model: gorm.Model{ID: id}, Email: "u@example.com", Role: role, TokenVersion: 1}
}

func newApp(versions TokenVersions) *fiber.App {
	auth := NewAuthMiddleware(string(secret), versions, logger.Discard())
	app := fiber.New()
	api := app.Group("/api", auth.Handler)
	api.Get("/me", func(c *fiber.Ctx) error {
		claims, _ := Claims(c)
		return c.JSON(fiber.Map{"user_id": claims.UserID})
	})
	api.Get("/wallet", HasPermission(models.PermissionWalletRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	api.Get("/admin", AdminOnly, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(secret, user(7, models.RoleUser), time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, 1, claims.TokenVersion)
	assert.True(t, claims.HasPermission(models.PermissionTransferWrite))
	assert.False(t, claims.HasPermission(models.PermissionReadAdmin))

	_, err = ParseToken([]byte("other"), token)
	assert.Error(t, err)
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := IssueToken(secret, user(7, models.RoleUser), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: 7,
	})
	signed, err := foreign.SignedString(secret)
	require.NoError(t, err)
	_, err = ParseToken(secret, signed)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	app := newApp(versionsStub{1: 1, 2: 3})

	valid, err := IssueToken(secret, user(1, models.RoleUser), time.Hour)
	require.NoError(t, err)
	stale, err := IssueToken(secret, user(2, models.RoleUser), time.Hour)
	require.NoError(t, err)
	unknown, err := IssueToken(secret, user(9, models.RoleUser), time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(t, app, "/api/me", valid))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/api/me", ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/api/me", stale))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/api/me", unknown))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token "+valid)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPermissionsAndRoles(t *testing.T) {
	app := newApp(versionsStub{1: 1, 2: 1, 3: 1})

	member, err := IssueToken(secret, user(1, models.RoleUser), time.Hour)
	require.NoError(t, err)
	admin, err := IssueToken(secret, user(2, models.RoleAdmin), time.Hour)
	require.NoError(t, err)
	guest, err := IssueToken(secret, user(3, "guest"), time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(t, app, "/api/wallet", member))
	assert.Equal(t, http.StatusForbidden, call(t, app, "/api/wallet", guest))
	assert.Equal(t, http.StatusForbidden, call(t, app, "/api/admin", member))
	assert.Equal(t, http.StatusOK, call(t, app, "/api/admin", admin))
}
