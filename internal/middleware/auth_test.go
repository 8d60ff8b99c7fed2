package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwheelhq/cartwheel/internal/config"
	"github.com/cartwheelhq/cartwheel/internal/models"
)

func signTestToken(t *testing.T, secret string, role models.Role) string {
	t.Helper()
	claims := &JWTClaims{
		UserID: 7,
		Email:  "person@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "person@example.com",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": GetUserID(c),
			"role":    GetUserRole(c),
		})
	})
	app.Post("/products", AuthRequired(cfg), AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := newTestApp(cfg)

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("non-bearer header is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Token abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "other-secret", models.RoleUser))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token exposes claims via locals", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg.JWTSecret, models.RoleUser))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			UserID int         `json:"user_id"`
			Role   models.Role `json:"role"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 7, body.UserID)
		assert.Equal(t, models.RoleUser, body.Role)
	})
}

func TestAdminRequired(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	app := newTestApp(cfg)

	t.Run("regular user cannot create products", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/products", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg.JWTSecret, models.RoleUser))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin passes through", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/products", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg.JWTSecret, models.RoleAdmin))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})
}
