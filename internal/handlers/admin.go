package handlers

import (
	"context"

	"ledgerpay/internal/models"
	"ledgerpay/internal/services/transfer"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/utils/response"
	"ledgerpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TierSetter assigns verification tiers on behalf of the external KYC flow.
type TierSetter interface {
	SetTier(ctx context.Context, userID uint, tier models.TransferTier) (*models.TransferLimit, error)
}

// AdminHandler exposes ledger administration. Routes are mounted behind
// middleware.AdminOnly.
type AdminHandler struct {
	ledger    wallet.Service
	transfers transfer.Service
	tiers     TierSetter
	log       logrus.FieldLogger
}

func NewAdminHandler(ledger wallet.Service, transfers transfer.Service, tiers TierSetter, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{ledger: ledger, transfers: transfers, tiers: tiers, log: log}
}

// VerifyReference handles GET /api/admin/transfers/verify/:code.
func (h *AdminHandler) VerifyReference(c *fiber.Ctx) error {
	code := c.Params("code")
	if v := validation.ReferenceCode(code); !v.Valid() {
		return response.Invalid(c, v.Errors)
	}

	v, err := h.transfers.VerifyAsAdmin(c.UserContext(), code)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "transfer verified", v)
}

type walletOpRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	OrderID string          `json:"order_id"`
}

type walletOp func(ctx context.Context, userID uint, amount decimal.Decimal, note string) (*wallet.Mutation, error)

// WalletOperation returns the handler for POST /api/admin/wallets/:userId/<op>.
func (h *AdminHandler) WalletOperation(op string) fiber.Handler {
	var (
		apply   walletOp
		byOrder bool
	)
	switch op {
	case "reward":
		apply = h.ledger.Reward
	case "bonus":
		apply = h.ledger.Bonus
	case "referral":
		apply = h.ledger.Referral
	case "mint":
		apply = h.ledger.Mint
	case "burn":
		apply = h.ledger.Burn
	case "penalty":
		apply = h.ledger.Penalty
	case "purchase":
		apply, byOrder = h.ledger.Purchase, true
	case "cashback":
		apply, byOrder = h.ledger.Cashback, true
	default:
		panic("unknown wallet operation " + op)
	}

	return func(c *fiber.Ctx) error {
		userID, ok := uintParam(c, "userId")
		if !ok {
			return response.BadRequest(c, "invalid user id")
		}
		var req walletOpRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
		if v := validation.WalletOperation(byOrder, req.Reason, req.OrderID); !v.Valid() {
			return response.Invalid(c, v.Errors)
		}
		note := req.Reason
		if byOrder {
			note = req.OrderID
		}

		m, err := apply(c.UserContext(), userID, req.Amount, note)
		if err != nil {
			return fail(c, h.log, err)
		}
		return response.Success(c, op+" applied", m)
	}
}

// Deactivate handles POST /api/admin/wallets/:userId/deactivate.
func (h *AdminHandler) Deactivate(c *fiber.Ctx) error {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return response.BadRequest(c, "invalid user id")
	}
	if err := h.ledger.Deactivate(c.UserContext(), userID); err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "wallet deactivated", nil)
}

// SetTier handles PUT /api/admin/limits/:userId/tier {tier}.
func (h *AdminHandler) SetTier(c *fiber.Ctx) error {
	userID, ok := uintParam(c, "userId")
	if !ok {
		return response.BadRequest(c, "invalid user id")
	}
	var req struct {
		Tier models.TransferTier `json:"tier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	limit, err := h.tiers.SetTier(c.UserContext(), userID, req.Tier)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "tier updated", limit)
}

// Stats handles GET /api/admin/ledger/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.ledger.Stats(c.UserContext())
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "ledger stats", stats)
}
