package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
}

func TestGatewayAuthMiddleware(t *testing.T) {
	t.Setenv("WAGER_SERVICE_TOKEN", "gw-secret")

	app := fiber.New()
	app.Use(GatewayAuthMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	do := func(authHeader string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusUnauthorized, do(""))
	assert.Equal(t, fiber.StatusUnauthorized, do("Bearer wrong"))
	assert.Equal(t, fiber.StatusUnauthorized, do("gw-secretx"))

	assert.Equal(t, fiber.StatusOK, do("Bearer gw-secret"))
	assert.Equal(t, fiber.StatusOK, do("gw-secret"))
}
