// Package webapi assembles the HTTP surface. Feature packages own
// their routes:
//   - transfer: the outbound transfer validation workflow
//   - auth: login
//   - admin: workflow settings, holds and pause codes
package webapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"

	"github.com/abensaid/lendify/pkg/app"
	adminweb "github.com/abensaid/lendify/webapi/admin"
	authweb "github.com/abensaid/lendify/webapi/auth"
	"github.com/abensaid/lendify/webapi/common"
	transferweb "github.com/abensaid/lendify/webapi/transfer"
)

// SetupApp initializes Fiber with middleware and routes.
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "lendify",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return common.ProblemDetailsJSON(c, fe.Message, err, fe.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		PersistAuthorization: true,
	}))

	// Rate limiting keys on the forwarded client IP when behind a proxy.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        a.Config.RateLimit.MaxRequests,
		Expiration: a.Config.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if i := strings.Index(forwardedFor, ","); i != -1 {
					return strings.TrimSpace(forwardedFor[:i])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(c, "Too Many Requests",
				errors.New("rate limit exceeded"), fiber.StatusTooManyRequests)
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Lendify API is running")
	})

	authweb.Routes(fiberApp, a.AuthService)
	transferweb.Routes(fiberApp, a.TransferService, a.Config)
	adminweb.Routes(fiberApp, a.TransferService, a.SettingsService, a.Config)
	return fiberApp
}
