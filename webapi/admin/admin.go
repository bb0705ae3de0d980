// Package admin exposes the back-office surface: workflow settings,
// transfer holds and pause code issuance. Every route requires an
// admin-role JWT.
package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/middleware"
	settingssvc "github.com/abensaid/lendify/pkg/service/settings"
	transfersvc "github.com/abensaid/lendify/pkg/service/transfer"
	"github.com/abensaid/lendify/webapi/common"
)

// SettingRequest writes one workflow setting.
type SettingRequest struct {
	Key   string `json:"key" validate:"required,min=1,max=64"`
	Value string `json:"value" validate:"required,max=256"`
}

// Routes registers the admin endpoints.
//
//   - PUT  /api/admin/settings                    : write a workflow setting
//   - GET  /api/admin/settings/:key               : read a workflow setting
//   - POST /api/admin/transfers/:id/suspend       : place a hold on a transfer
//   - POST /api/admin/transfers/:id/pause-code    : issue the unblock code
func Routes(app *fiber.App, transfers *transfersvc.Service, settings *settingssvc.Service, cfg *config.App) {
	g := app.Group("/api/admin", middleware.JwtProtected(cfg.Auth.Jwt), middleware.AdminOnly())
	g.Put("/settings", SetSetting(settings))
	g.Get("/settings/:key", GetSetting(settings))
	g.Post("/transfers/:id/suspend", Suspend(transfers))
	g.Post("/transfers/:id/pause-code", IssuePauseCode(transfers))
}

// SetSetting writes a workflow setting.
// @Summary Write a setting
// @Description Writes one admin setting, e.g. transfer_required_codes or transfer_fee_amount. Takes effect on the next transfer initiation.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SettingRequest true "Setting"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 403 {object} common.ProblemDetails
// @Router /api/admin/settings [put]
// @Security Bearer
func SetSetting(settings *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[SettingRequest](c)
		if input == nil {
			return err
		}
		if err := settings.Set(c.Context(), input.Key, input.Value); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to write setting", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Setting saved",
			fiber.Map{"key": input.Key, "value": input.Value})
	}
}

// GetSetting reads a workflow setting.
// @Summary Read a setting
// @Tags admin
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /api/admin/settings/{key} [get]
// @Security Bearer
func GetSetting(settings *settingssvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		value, err := settings.Get(c.Context(), key)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Setting not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Setting",
			fiber.Map{"key": key, "value": value})
	}
}

// Suspend places an administrative hold on an in-progress transfer.
// @Summary Suspend a transfer
// @Description Places a hold at the transfer's current progress. The customer unblocks it with an administrator-relayed pause code.
// @Tags admin
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/admin/transfers/{id}/suspend [post]
// @Security Bearer
func Suspend(transfers *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		if err := transfers.Suspend(c.Context(), id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to suspend transfer", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer suspended", nil)
	}
}

// IssuePauseCode issues the unblock code for a paused transfer. The raw
// value is returned to the administrator for relay through a support
// channel; it is never sent to the customer directly.
// @Summary Issue a pause code
// @Tags admin
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/admin/transfers/{id}/pause-code [post]
// @Security Bearer
func IssuePauseCode(transfers *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		code, err := transfers.IssuePauseCode(c.Context(), id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to issue pause code", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Pause code issued",
			fiber.Map{"code": code})
	}
}
