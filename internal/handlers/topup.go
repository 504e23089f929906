package handlers

import (
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/services/topup"
	"ledgerpay/internal/utils/response"
	"ledgerpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TopUpHandler struct {
	topups topup.Service
	log    logrus.FieldLogger
}

func NewTopUpHandler(topups topup.Service, log logrus.FieldLogger) *TopUpHandler {
	return &TopUpHandler{topups: topups, log: log}
}

// Create handles POST /api/topups. The response carries the client secret
// used to confirm the payment with the processor.
func (h *TopUpHandler) Create(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if v := validation.TopUp(req.Currency); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	t, err := h.topups.Create(c.UserContext(), claims.UserID, req.Amount, req.Currency)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Created(c, "top-up created", t)
}

func (h *TopUpHandler) Get(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid top-up id")
	}

	t, err := h.topups.Get(c.UserContext(), claims.UserID, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "top-up retrieved", t)
}

// Refresh handles POST /api/topups/:id/refresh.
func (h *TopUpHandler) Refresh(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid top-up id")
	}

	t, err := h.topups.Refresh(c.UserContext(), claims.UserID, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "top-up refreshed", t)
}
