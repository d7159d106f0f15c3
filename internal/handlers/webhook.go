package handlers

import (
	"errors"

	"arbirupee/internal/services/orchestrator"
	"arbirupee/internal/services/payment"
	"arbirupee/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// WebhookHandler receives payment gateway callbacks. The raw body is passed
// through untouched so signature verification covers exactly what was sent.
type WebhookHandler struct {
	orchestrator orchestrator.Service
	log          *logrus.Entry
}

func NewWebhookHandler(svc orchestrator.Service, log *logrus.Entry) *WebhookHandler {
	return &WebhookHandler{orchestrator: svc, log: log}
}

func (h *WebhookHandler) HandlePaymentWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Razorpay-Signature")
	if signature == "" {
		return response.BadRequest(c, "Missing signature header")
	}

	body := c.Body()
	if err := h.orchestrator.HandleWebhook(c.Context(), body, signature); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return response.Error(c, fiber.StatusUnauthorized, "Invalid webhook signature")
		}
		// The gateway retries on non-2xx; transient failures should retry.
		h.log.WithError(err).Error("webhook processing failed")
		return response.ServerError(c, "Webhook processing failed")
	}

	return response.Success(c, "Webhook processed", nil)
}
