// Package auth exposes the login endpoint.
package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/abensaid/lendify/pkg/domain"
	authsvc "github.com/abensaid/lendify/pkg/service/auth"
	"github.com/abensaid/lendify/webapi/common"
)

// LoginInput carries the login credentials.
type LoginInput struct {
	Identity string `json:"identity" validate:"required,min=3,max=128"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Routes registers the auth endpoints.
func Routes(app *fiber.App, svc *authsvc.Service) {
	app.Post("/auth/login", Login(svc))
}

// Login authenticates a user and returns a JWT.
// @Summary User login
// @Description Authenticate with an email or username identity and password.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/login [post]
func Login(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err
		}
		u, err := svc.Login(c.Context(), input.Identity, input.Password)
		if err != nil {
			if errors.Is(err, domain.ErrUserUnauthorized) {
				return common.ProblemDetailsJSON(c, "Invalid identity or password", err, fiber.StatusUnauthorized)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		token, err := svc.GenerateToken(u)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Login successful", fiber.Map{"token": token})
	}
}
