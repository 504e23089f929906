package handlers

import (
	"ledgerpay/internal/services/funding"
	"ledgerpay/internal/services/processor"
	"ledgerpay/internal/services/topup"
	"ledgerpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const signatureHeader = "Stripe-Signature"

// WebhookHandler verifies processor webhooks and hands them to the
// reconcilers. Once a payload is verified the processor always gets a 200:
// handling is idempotent, so redelivery is how failures get retried.
type WebhookHandler struct {
	client         processor.Client
	funding        funding.Service
	topups         topup.Service
	issuingSecret  string
	paymentsSecret string
	log            logrus.FieldLogger
}

func NewWebhookHandler(
	client processor.Client,
	funding funding.Service,
	topups topup.Service,
	issuingSecret, paymentsSecret string,
	log logrus.FieldLogger,
) *WebhookHandler {
	return &WebhookHandler{
		client:         client,
		funding:        funding,
		topups:         topups,
		issuingSecret:  issuingSecret,
		paymentsSecret: paymentsSecret,
		log:            log.WithField("component", "webhooks"),
	}
}

// Issuing handles POST /webhooks/stripe/issuing.
func (h *WebhookHandler) Issuing(c *fiber.Ctx) error {
	evt, ok := h.verify(c, h.issuingSecret)
	if !ok {
		return response.BadRequest(c, "invalid signature")
	}

	result, err := h.funding.HandleEvent(c.UserContext(), evt)
	if err != nil {
		// Authorization requests fall back to the processor's own policy
		// when we fail to answer.
		return c.JSON(fiber.Map{"received": true, "handled": false})
	}
	body := fiber.Map{"received": true, "handled": result.Handled}
	if result.Approved != nil {
		body["approved"] = *result.Approved
	}
	return c.JSON(body)
}

// Payments handles POST /webhooks/stripe/payments.
func (h *WebhookHandler) Payments(c *fiber.Ctx) error {
	evt, ok := h.verify(c, h.paymentsSecret)
	if !ok {
		return response.BadRequest(c, "invalid signature")
	}

	if _, err := h.topups.HandleEvent(c.UserContext(), evt); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"event_id": evt.ID, "event_type": evt.Type}).
			Error("payment event not handled, waiting for redelivery")
		return c.JSON(fiber.Map{"received": true, "handled": false})
	}
	return c.JSON(fiber.Map{"received": true, "handled": true})
}

func (h *WebhookHandler) verify(c *fiber.Ctx, secret string) (*processor.Event, bool) {
	evt, err := h.client.ParseWebhook(c.Body(), c.Get(signatureHeader), secret)
	if err != nil {
		h.log.WithError(err).WithField("path", c.Path()).Warn("webhook rejected")
		return nil, false
	}
	return evt, true
}
