package routes

import (
	"strconv"
	"time"

	"ledgerpay/internal/handlers"
	"ledgerpay/internal/middleware"
	"ledgerpay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth     *middleware.AuthMiddleware
	Health   fiber.Handler
	Wallet   *handlers.WalletHandler
	Transfer *handlers.TransferHandler
	Card     *handlers.CardHandler
	TopUp    *handlers.TopUpHandler
	Admin    *handlers.AdminHandler
	Webhook  *handlers.WebhookHandler

	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// TransferRate caps transfer executions per user per minute. Zero
	// disables the limiter.
	TransferRate int
}

func SetupRoutes(app *fiber.App, h Handlers) {
	if h.Health != nil {
		app.Get("/health", h.Health)
	}
	if h.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	// Processor callbacks authenticate with their signature, not a JWT.
	hooks := app.Group("/webhooks/stripe")
	hooks.Post("/issuing", h.Webhook.Issuing)
	hooks.Post("/payments", h.Webhook.Payments)

	api := app.Group("/api", h.Auth.Handler)

	setupAdminRoutes(api, h.Admin)
	setupWalletRoutes(api, h.Wallet)
	setupTransferRoutes(api, h.Transfer, h.TransferRate)
	setupCardRoutes(api, h.Card)
	setupTopUpRoutes(api, h.TopUp)
}

func setupWalletRoutes(router fiber.Router, h *handlers.WalletHandler) {
	wallet := router.Group("/wallet", middleware.HasPermission(models.PermissionWalletRead))
	wallet.Get("/", h.GetWallet)
	wallet.Get("/history", h.History)
}

func setupTransferRoutes(router fiber.Router, h *handlers.TransferHandler, perMinute int) {
	transfers := router.Group("/transfers")
	transfers.Post("/preview", h.Preview)
	transfers.Get("/limits", h.Limits)
	transfers.Get("/verify/:code", h.Verify)

	execute := []fiber.Handler{middleware.HasPermission(models.PermissionTransferWrite)}
	if perMinute > 0 {
		execute = append(execute, transferLimiter(perMinute))
	}
	transfers.Post("/", append(execute, h.Execute)...)
}

func setupCardRoutes(router fiber.Router, h *handlers.CardHandler) {
	cards := router.Group("/cards", middleware.HasPermission(models.PermissionCardWrite))
	cards.Post("/link", h.Link)
	cards.Post("/:id/fund", h.Fund)
	cards.Post("/:id/withdraw", h.Withdraw)
	cards.Get("/:id/transactions", h.Transactions)
}

func setupTopUpRoutes(router fiber.Router, h *handlers.TopUpHandler) {
	topups := router.Group("/topups")
	topups.Post("/", middleware.HasPermission(models.PermissionWalletWrite), h.Create)
	topups.Get("/:id", h.Get)
	topups.Post("/:id/refresh", h.Refresh)
}

func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler) {
	admin := router.Group("/admin", middleware.AdminOnly)

	admin.Get("/transfers/verify/:code", middleware.HasPermission(models.PermissionReadAdmin), h.VerifyReference)
	admin.Get("/ledger/stats", middleware.HasPermission(models.PermissionReadAdmin), h.Stats)
	admin.Put("/limits/:userId/tier", middleware.HasPermission(models.PermissionWriteAdmin), h.SetTier)

	wallets := admin.Group("/wallets/:userId", middleware.HasPermission(models.PermissionWriteAdmin))
	for _, op := range []string{"reward", "bonus", "referral", "cashback", "mint", "burn", "penalty", "purchase"} {
		wallets.Post("/"+op, h.WalletOperation(op))
	}
	wallets.Post("/deactivate", h.Deactivate)
}

// transferLimiter throttles per authenticated user, falling back to the
// client IP.
func transferLimiter(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, ok := middleware.Claims(c); ok {
				return "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}
