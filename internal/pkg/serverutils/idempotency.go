package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fanova-be/internal/pkg/apperror"
	"fanova-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	idempotencyProcessing = "processing"
	idempotencyLock       = 30 * time.Second
	idempotencyRetention  = 24 * time.Hour
)

// storedResponse is what a completed request leaves under its key.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// IdempotencyMiddleware replays the stored 2xx response, status included, for a repeated Idempotency-Key.
// Without the header, or without redis, requests pass straight through.
func IdempotencyMiddleware(rdb *redis.Client, log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := ctx.Get(IdempotencyHeader)
		if key == "" || rdb == nil {
			return ctx.Next()
		}

		userID, _ := ctx.Locals("user_id").(string)
		storageKey := fmt.Sprintf("idempotency:%s:%s:%s", userID, ctx.Path(), key)
		reqCtx := ctx.UserContext()

		val, err := rdb.Get(reqCtx, storageKey).Result()
		switch {
		case err == nil && val == idempotencyProcessing:
			return WriteError(ctx, log, apperror.New(fiber.StatusConflict, apperror.CodeIdempotencyConflict, "request already in progress", nil))
		case err == nil:
			var stored storedResponse
			if jsonErr := json.Unmarshal([]byte(val), &stored); jsonErr != nil || stored.Status == 0 {
				log.Warn("IDEMPOTENCY", "Discarding unreadable stored response", map[string]interface{}{"key": storageKey})
				rdb.Del(reqCtx, storageKey)
				return ctx.Next()
			}
			ctx.Set("X-Idempotency-Hit", "true")
			if stored.ContentType != "" {
				ctx.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return ctx.Status(stored.Status).SendString(stored.Body)
		case !errors.Is(err, redis.Nil):
			log.Warn("IDEMPOTENCY", "Redis unavailable, skipping idempotency", map[string]interface{}{"error": err.Error()})
			return ctx.Next()
		}

		acquired, err := rdb.SetNX(reqCtx, storageKey, idempotencyProcessing, idempotencyLock).Result()
		if err != nil || !acquired {
			return WriteError(ctx, log, apperror.New(fiber.StatusConflict, apperror.CodeIdempotencyConflict, "request already in progress", nil))
		}

		if err := ctx.Next(); err != nil {
			rdb.Del(reqCtx, storageKey)
			return err
		}

		status := ctx.Response().StatusCode()
		if status < 200 || status >= 300 {
			rdb.Del(reqCtx, storageKey)
			return nil
		}
		data, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: string(ctx.Response().Header.ContentType()),
			Body:        string(ctx.Response().Body()),
		})
		if err != nil {
			rdb.Del(reqCtx, storageKey)
			return nil
		}
		rdb.Set(reqCtx, storageKey, string(data), idempotencyRetention)
		return nil
	}
}
