package handlers

import (
	"context"

	"ledgerpay/internal/middleware"
	"ledgerpay/internal/services/limits"
	"ledgerpay/internal/services/transfer"
	"ledgerpay/internal/utils/response"
	"ledgerpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LimitStatus is the read side of the transfer limit guard.
type LimitStatus interface {
	Status(ctx context.Context, userID uint) (*limits.Status, error)
}

// TransferHandler exposes P2P transfer endpoints.
type TransferHandler struct {
	transfers transfer.Service
	limits    LimitStatus
	log       logrus.FieldLogger
}

func NewTransferHandler(transfers transfer.Service, limits LimitStatus, log logrus.FieldLogger) *TransferHandler {
	return &TransferHandler{transfers: transfers, limits: limits, log: log}
}

type transferRequest struct {
	ToUserID uint            `json:"to_user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

// Preview handles POST /api/transfers/preview.
func (h *TransferHandler) Preview(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if v := validation.Transfer(req.ToUserID, req.Note); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	preview, err := h.transfers.Preview(c.UserContext(), claims.UserID, req.ToUserID, req.Amount)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "transfer preview", preview)
}

// Execute handles POST /api/transfers.
func (h *TransferHandler) Execute(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if v := validation.Transfer(req.ToUserID, req.Note); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	result, err := h.transfers.Execute(c.UserContext(), transfer.Request{
		FromUserID: claims.UserID,
		ToUserID:   req.ToUserID,
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Created(c, "transfer completed", result)
}

// Limits handles GET /api/transfers/limits.
func (h *TransferHandler) Limits(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	status, err := h.limits.Status(c.UserContext(), claims.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "transfer limits", status)
}

// Verify handles GET /api/transfers/verify/:code.
func (h *TransferHandler) Verify(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	code := c.Params("code")
	if v := validation.ReferenceCode(code); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	v, err := h.transfers.Verify(c.UserContext(), code, claims.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "transfer verified", v)
}
