package handlers

import (
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/services/wallet"
	"ledgerpay/internal/utils/pagination"
	"ledgerpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type WalletHandler struct {
	ledger wallet.Service
	log    logrus.FieldLogger
}

func NewWalletHandler(ledger wallet.Service, log logrus.FieldLogger) *WalletHandler {
	return &WalletHandler{ledger: ledger, log: log}
}

// GetWallet handles GET /api/wallet. The wallet is created on first access.
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}

	w, err := h.ledger.GetOrCreateWallet(c.UserContext(), claims.UserID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "wallet retrieved", w)
}

// History handles GET /api/wallet/history?page=&limit=.
func (h *WalletHandler) History(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	entries, err := h.ledger.History(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return fail(c, h.log, err)
	}
	return response.Success(c, "history retrieved", entries)
}
