package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMarkerApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opt, err := redis.ParseURL("redis://" + mr.Addr())
	require.NoError(t, err)
	rdb := redis.NewClient(opt)

	app := fiber.New()
	app.Use(HealthMarker(rdb))
	app.Use(Tracing())
	app.Get("/api/v1/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusInternalServerError) })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app, mr
}

func TestHealthMarker_CountsRequests(t *testing.T) {
	app, mr := setupMarkerApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/api/v1/ok", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/api/v1/ok", nil))
	require.NoError(t, err)

	total, err := mr.Get(KeyReqTotal)
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	last, err := mr.Get(KeyLastReq)
	require.NoError(t, err)
	assert.Contains(t, last, "/api/v1/ok")
}

func TestHealthMarker_ServerErrorsLogged(t *testing.T) {
	app, mr := setupMarkerApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/api/v1/boom", nil))
	require.NoError(t, err)

	errCount, err := mr.Get(KeyReqErrors)
	require.NoError(t, err)
	assert.Equal(t, "1", errCount)

	entries, err := mr.List(KeyErrorLog)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "/api/v1/boom")
	assert.Contains(t, entries[0], "trace_id")
}

func TestHealthMarker_SkipsHealthPaths(t *testing.T) {
	app, mr := setupMarkerApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)

	assert.False(t, mr.Exists(KeyReqTotal))
}

func TestTracing_ReusesWellFormedInboundID(t *testing.T) {
	app, _ := setupMarkerApp(t)

	inbound := "2f0c7a9e-5b1d-4c7e-9a39-8a59f90de111"
	req := httptest.NewRequest("GET", "/api/v1/ok", nil)
	req.Header.Set("X-Trace-Id", inbound)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, inbound, resp.Header.Get("X-Trace-Id"))
}

func TestTracing_ReplacesMalformedInboundID(t *testing.T) {
	app, _ := setupMarkerApp(t)

	req := httptest.NewRequest("GET", "/api/v1/ok", nil)
	req.Header.Set("X-Trace-Id", "not-a-uuid")
	resp, err := app.Test(req)
	require.NoError(t, err)
	out := resp.Header.Get("X-Trace-Id")
	assert.NotEqual(t, "not-a-uuid", out)
	assert.NotEmpty(t, out)
}
