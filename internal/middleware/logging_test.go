package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandler_AddsIdentity(t *testing.T) {
	buf := &bytes.Buffer{}
	l := InitLogger("production", buf)
	t.Cleanup(func() { InitLogger(os.Getenv("APP_ENV"), os.Stdout) })

	ctx := WithIdentity(context.Background(), 9, "dean")
	ctx = context.WithValue(ctx, RequestIDKey, "req-1")
	l.InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"user_id":9`)
	assert.Contains(t, out, `"role":"dean"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
}

func TestContextMiddleware_PropagatesRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	InitLogger("production", buf)
	t.Cleanup(func() { InitLogger(os.Getenv("APP_ENV"), os.Stdout) })

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		rid, _ := c.UserContext().Value(RequestIDKey).(string)
		return c.SendString(rid)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), `"request_id":"fixed-id"`)
	assert.Contains(t, buf.String(), `"msg":"request processed"`)
}
