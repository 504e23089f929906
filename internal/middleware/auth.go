// Package middleware holds the Fiber middleware in front of the ledger API.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ledgerpay/internal/models"
	"ledgerpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	localsClaims = "claims"
	issuer       = "ledgerpay"
)

// TokenVersions reports the current session generation for a user.
type TokenVersions interface {
	TokenVersion(ctx context.Context, userID uint) (int, error)
}

// AuthMiddleware validates bearer tokens issued for the ledger API. Tokens
// whose version is older than the user's current one are rejected.
type AuthMiddleware struct {
	secret   []byte
	versions TokenVersions
	log      logrus.FieldLogger
}

func NewAuthMiddleware(secret string, versions TokenVersions, log logrus.FieldLogger) *AuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthMiddleware{
		secret:   []byte(secret),
		versions: versions,
		log:      log.WithField("component", "auth"),
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Unauthorized(c, "invalid authorization format")
	}

	claims, err := ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.log.WithError(err).Debug("token rejected")
		return response.Unauthorized(c, "invalid token")
	}

	if m.versions != nil {
		current, err := m.versions.TokenVersion(c.UserContext(), claims.UserID)
		if err != nil {
			m.log.WithError(err).WithField("user_id", claims.UserID).Warn("token for unknown user")
			return response.Unauthorized(c, "invalid token")
		}
		if claims.TokenVersion != current {
			return response.Unauthorized(c, "session expired")
		}
	}

	c.Locals(localsClaims, claims)
	return c.Next()
}

// AdminOnly must run after Handler.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok {
		return response.Unauthorized(c, "invalid claims")
	}
	if !claims.IsAdmin() {
		return response.Forbidden(c, "insufficient permissions")
	}
	return c.Next()
}

// HasPermission must run after Handler.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return response.Unauthorized(c, "invalid claims")
		}
		if !claims.HasPermission(permission) {
			return response.Forbidden(c, "insufficient permissions")
		}
		return c.Next()
	}
}

// Claims returns the verified claims stored by Handler.
func Claims(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(localsClaims).(*models.UserClaims)
	return claims, ok && claims != nil
}

// IssueToken signs an HS256 access token for the user.
func IssueToken(secret []byte, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Permissions:  models.DefaultPermissions(user.Role),
		TokenVersion: user.TokenVersion,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates signature, expiry and signing method.
func ParseToken(secret []byte, tokenStr string) (*models.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
