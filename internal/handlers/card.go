package handlers

import (
	"context"

	"ledgerpay/internal/middleware"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/funding"
	"ledgerpay/internal/utils/pagination"
	"ledgerpay/internal/utils/response"
	"ledgerpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CardHandler struct {
	funding funding.Service
	log     logrus.FieldLogger
}

func NewCardHandler(funding funding.Service, log logrus.FieldLogger) *CardHandler {
	return &CardHandler{funding: funding, log: log}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Link handles POST /api/cards/link {processor_card_id}.
func (h *CardHandler) Link(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	var req struct {
		ProcessorCardID string `json:"processor_card_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if v := validation.CardLink(req.ProcessorCardID); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	card, err := h.funding.LinkCard(c.UserContext(), claims.UserID, req.ProcessorCardID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Created(c, "card linked", card)
}

// Fund handles POST /api/cards/:id/fund.
func (h *CardHandler) Fund(c *fiber.Ctx) error {
	return h.move(c, h.funding.FundCard, "card funded")
}

// Withdraw handles POST /api/cards/:id/withdraw.
func (h *CardHandler) Withdraw(c *fiber.Ctx) error {
	return h.move(c, h.funding.WithdrawToWallet, "card withdrawal completed")
}

func (h *CardHandler) move(c *fiber.Ctx, op func(ctx context.Context, userID, cardID uint, amount decimal.Decimal) (*funding.Result, error), message string) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	cardID, ok := uintParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := op(c.UserContext(), claims.UserID, cardID, req.Amount)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, message, result)
}

// Transactions handles GET /api/cards/:id/transactions?type=&status=&page=&limit=.
func (h *CardHandler) Transactions(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	cardID, ok := uintParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid card id")
	}

	p := pagination.ParseFromRequest(c)
	txs, total, err := h.funding.ListTransactions(c.UserContext(), claims.UserID, cardID, repositories.CardTransactionFilter{
		Type:   c.Query("type"),
		Status: c.Query("status"),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, txs))
}
