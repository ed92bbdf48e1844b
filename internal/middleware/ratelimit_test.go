package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKeySeparatesEndpointsInGroup(t *testing.T) {
	var keys []string
	app := fiber.New(fiber.Config{Immutable: true})
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		keys = append(keys, rateLimitKey(c))
		return c.Next()
	})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	api.Get("/notifications", ok)
	api.Post("/pending-updates", ok)

	for _, r := range []struct{ method, path string }{
		{fiber.MethodGet, "/api/v1/notifications"},
		{fiber.MethodPost, "/api/v1/pending-updates"},
	} {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
	assert.Contains(t, keys[0], "GET:/api/v1/notifications")
	assert.Contains(t, keys[1], "POST:/api/v1/pending-updates")
}
