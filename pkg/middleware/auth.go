// Package middleware carries the HTTP middleware shared by the webapi
// feature packages.
package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain/user"
)

// JwtProtected guards a route with JWT bearer authentication. The
// verified token lands in c.Locals("user").
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	if err.Error() == "Missing or malformed JWT" {
		status = fiber.StatusBadRequest
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(fiber.Map{
		"type":   "about:blank",
		"title":  "Unauthorized",
		"status": status,
		"detail": err.Error(),
	})
}

// AdminOnly rejects tokens whose role claim is not admin. Must run
// after JwtProtected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return fiber.ErrUnauthorized
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.ErrUnauthorized
		}
		role, _ := claims["role"].(string)
		if user.Role(role) != user.RoleAdmin {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}
