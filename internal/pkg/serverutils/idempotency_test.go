package serverutils

import (
	"io"
	"net/http/httptest"
	"testing"

	"fanova-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotencyApp(t *testing.T) (*fiber.App, *miniredis.Miniredis, *int) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	app := fiber.New()
	app.Use(func(ctx *fiber.Ctx) error {
		ctx.Locals("user_id", "user-1")
		return ctx.Next()
	})
	app.Use(IdempotencyMiddleware(rdb, logger.NewNopLogger()))
	app.Post("/checkout", func(ctx *fiber.Ctx) error {
		calls++
		return ctx.Status(fiber.StatusCreated).JSON(SuccessResponse("created", calls))
	})
	app.Post("/generations", func(ctx *fiber.Ctx) error {
		calls++
		return ctx.Status(fiber.StatusAccepted).JSON(SuccessResponse("queued", calls))
	})
	app.Post("/fail", func(ctx *fiber.Ctx) error {
		calls++
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, "nope"))
	})
	return app, srv, &calls
}

func postWithKey(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestIdempotencyMiddleware_NoHeaderPassthrough(t *testing.T) {
	app, _, calls := newIdempotencyApp(t)

	postWithKey(t, app, "/checkout", "")
	postWithKey(t, app, "/checkout", "")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyMiddleware_ReplaysSuccess(t *testing.T) {
	app, _, calls := newIdempotencyApp(t)

	status, first := postWithKey(t, app, "/checkout", "key-1")
	assert.Equal(t, 201, status)

	status, second := postWithKey(t, app, "/checkout", "key-1")
	assert.Equal(t, 201, status)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyMiddleware_ReplaysAcceptedStatus(t *testing.T) {
	app, _, calls := newIdempotencyApp(t)

	status, first := postWithKey(t, app, "/generations", "key-3")
	assert.Equal(t, 202, status)

	req := httptest.NewRequest("POST", "/generations", nil)
	req.Header.Set(IdempotencyHeader, "key-3")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, 202, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotency-Hit"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Equal(t, first, string(body))
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyMiddleware_UnreadableEntryIsDiscarded(t *testing.T) {
	app, srv, calls := newIdempotencyApp(t)
	require.NoError(t, srv.Set("idempotency:user-1:/checkout:key-4", "{not json"))

	status, _ := postWithKey(t, app, "/checkout", "key-4")
	assert.Equal(t, 201, status)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyMiddleware_ProcessingConflict(t *testing.T) {
	app, srv, calls := newIdempotencyApp(t)
	require.NoError(t, srv.Set("idempotency:user-1:/checkout:key-1", "processing"))

	status, body := postWithKey(t, app, "/checkout", "key-1")
	assert.Equal(t, 409, status)
	assert.Contains(t, body, "IDEMPOTENCY_CONFLICT")
	assert.Equal(t, 0, *calls)
}

func TestIdempotencyMiddleware_FailureReleasesKey(t *testing.T) {
	app, srv, calls := newIdempotencyApp(t)

	status, _ := postWithKey(t, app, "/fail", "key-2")
	assert.Equal(t, 400, status)
	assert.False(t, srv.Exists("idempotency:user-1:/fail:key-2"))

	postWithKey(t, app, "/fail", "key-2")
	assert.Equal(t, 2, *calls)
}
