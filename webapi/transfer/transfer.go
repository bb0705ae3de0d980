// Package transfer exposes the outbound transfer validation workflow
// over HTTP. All routes require a JWT-authenticated user; transfers are
// always resolved in the caller's scope.
package transfer

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/middleware"
	authsvc "github.com/abensaid/lendify/pkg/service/auth"
	transfersvc "github.com/abensaid/lendify/pkg/service/transfer"
	"github.com/abensaid/lendify/webapi/common"
)

// Routes registers the transfer endpoints.
//
//   - POST /api/transfers/initiate                 : create a transfer, first code issued
//   - POST /api/transfers/:id/send-code            : issue the code for the next sequence
//   - POST /api/transfers/:id/validate-code        : validate one code
//   - POST /api/transfers/:id/validate-pause-code  : lift an administrative hold
//   - GET  /api/transfers/:id                      : transfer with audit trail and codes
//   - GET  /api/transfers                          : the caller's transfers
func Routes(app *fiber.App, svc *transfersvc.Service, cfg *config.App) {
	g := app.Group("/api/transfers", middleware.JwtProtected(cfg.Auth.Jwt))
	g.Post("/initiate", Initiate(svc))
	g.Post("/:id/send-code", SendCode(svc))
	g.Post("/:id/validate-code", ValidateCode(svc))
	g.Post("/:id/validate-pause-code", ValidatePauseCode(svc))
	g.Get("/:id", Get(svc))
	g.Get("/", List(svc))
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := authsvc.CurrentUserID(token)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func transferID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// Initiate creates a transfer and issues the first validation code.
// @Summary Initiate a transfer
// @Description Creates a pending transfer against an eligible loan. The first validation code is issued and its fee charged as part of initiation.
// @Tags transfers
// @Accept json
// @Produce json
// @Param request body InitiateRequest true "Transfer form"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails "Loan not eligible"
// @Router /api/transfers/initiate [post]
// @Security Bearer
func Initiate(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[InitiateRequest](c)
		if input == nil {
			return err
		}
		amount, err := decimal.NewFromString(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err, fiber.StatusBadRequest)
		}
		loanID, err := uuid.Parse(input.LoanID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid loan ID", err, fiber.StatusBadRequest)
		}
		var externalAccountID *string
		if input.ExternalAccountID != "" {
			externalAccountID = &input.ExternalAccountID
		}
		res, err := svc.Initiate(c.Context(), userID, transfersvc.InitiateInput{
			Amount:            amount,
			Recipient:         input.Recipient,
			LoanID:            loanID,
			ExternalAccountID: externalAccountID,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to initiate transfer", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transfer initiated",
			toTransferResponse(res.Transfer, res.DemoCode))
	}
}

// SendCode issues a fresh code for the next pending sequence.
// @Summary Send validation code
// @Description Issues the code for the next sequence, superseding any active code for that position. Each issuance charges the validation fee.
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param request body SendCodeRequest false "Delivery override"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/transfers/{id}/send-code [post]
// @Security Bearer
func SendCode(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		id, err := transferID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		var method string
		if len(c.Body()) > 0 {
			input, err := common.BindAndValidate[SendCodeRequest](c)
			if input == nil {
				return err
			}
			method = input.Method
		}
		res, err := svc.SendCode(c.Context(), userID, id, method)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to send code", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Code sent",
			SendCodeResponse{Sequence: res.Sequence, DemoCode: res.DemoCode})
	}
}

// ValidateCode validates one code entry.
// @Summary Validate a code
// @Description Consumes the active code for the given sequence. Sequences validate strictly in order; expired codes fail exactly like wrong ones.
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param request body ValidateCodeRequest true "Code entry"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails "Invalid, expired or out-of-order code"
// @Failure 404 {object} common.ProblemDetails
// @Router /api/transfers/{id}/validate-code [post]
// @Security Bearer
func ValidateCode(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		id, err := transferID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		input, err := common.BindAndValidate[ValidateCodeRequest](c)
		if input == nil {
			return err
		}
		res, err := svc.ValidateCode(c.Context(), userID, id, input.Code, input.Sequence)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Code validation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Code validated",
			ValidationResponse{Success: res.Success, IsComplete: res.IsComplete, Progress: res.Progress})
	}
}

// ValidatePauseCode lifts an administrative hold.
// @Summary Validate a pause code
// @Description Consumes the administrator-issued unblock code and resumes the paused transfer.
// @Tags transfers
// @Accept json
// @Produce json
// @Param id path string true "Transfer ID"
// @Param request body ValidatePauseCodeRequest true "Pause code"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /api/transfers/{id}/validate-pause-code [post]
// @Security Bearer
func ValidatePauseCode(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		id, err := transferID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		input, err := common.BindAndValidate[ValidatePauseCodeRequest](c)
		if input == nil {
			return err
		}
		if err := svc.ValidatePauseCode(c.Context(), userID, id, input.Code); err != nil {
			return common.ProblemDetailsJSON(c, "Pause code validation failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer resumed", nil)
	}
}

// Get returns the transfer with its audit trail and codes.
// @Summary Get a transfer
// @Description Returns the transfer, its audit trail and issued codes. Code values are masked unless code exposure is enabled.
// @Tags transfers
// @Produce json
// @Param id path string true "Transfer ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /api/transfers/{id} [get]
// @Security Bearer
func Get(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		id, err := transferID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid transfer ID", err, fiber.StatusBadRequest)
		}
		detail, err := svc.Get(c.Context(), userID, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Transfer not found", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer", toDetailResponse(detail))
	}
}

// List returns the caller's transfers.
// @Summary List transfers
// @Tags transfers
// @Produce json
// @Success 200 {object} common.Response
// @Router /api/transfers [get]
// @Security Bearer
func List(svc *transfersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		transfers, err := svc.List(c.Context(), userID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transfers", err)
		}
		out := make([]TransferResponse, 0, len(transfers))
		for _, t := range transfers {
			out = append(out, toTransferResponse(t, ""))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfers", out)
	}
}
