package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

// Health reports database and, when configured, Redis connectivity. A
// failing dependency turns the response into a 503.
func Health(db *gorm.DB, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		services := fiber.Map{"database": "connected"}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			services["database"] = "unavailable"
			healthy = false
		}
		if rdb != nil {
			services["redis"] = "connected"
			if err := rdb.Ping(ctx).Err(); err != nil {
				// The cache is optional; report it without failing the check.
				services["redis"] = "unavailable"
			}
		}

		status := fiber.StatusOK
		state := "ok"
		if !healthy {
			status = fiber.StatusServiceUnavailable
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   state,
			"services": services,
		})
	}
}
