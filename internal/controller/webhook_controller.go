package controller

import (
	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/pkg/logger"
	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Invoices with many line items run to a few hundred KiB. A rejected body is
// retried by the processor until it gives up.
const defaultWebhookMaxBody = 512 * 1024

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Stripe(ctx *fiber.Ctx) error
}

type webhookController struct {
	dispatcher service.IWebhookDispatcher
	secret     string
	maxBody    int
	logger     logger.ILogger
}

func NewWebhookController(dispatcher service.IWebhookDispatcher, secret string, maxBody int, logger logger.ILogger) IWebhookController {
	if maxBody <= 0 {
		maxBody = defaultWebhookMaxBody
	}
	return &webhookController{
		dispatcher: dispatcher,
		secret:     secret,
		maxBody:    maxBody,
		logger:     logger,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhooks")
	h.Post("/stripe", c.Stripe)
}

// Stripe answers 200 for anything handled or deliberately ignored and 500
// when a handler fails, so the processor redelivers.
func (c *webhookController) Stripe(ctx *fiber.Ctx) error {
	body := ctx.Body()
	if len(body) == 0 || len(body) > c.maxBody {
		c.logger.Warn(logger.ModuleWebhook, "Rejected webhook body", map[string]interface{}{
			"size": len(body),
		})
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid body"))
	}

	event, err := webhook.ConstructEventWithOptions(body, ctx.Get("Stripe-Signature"), c.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Warn(logger.ModuleWebhook, "Webhook signature verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid signature"))
	}

	status, err := c.dispatcher.Dispatch(ctx.UserContext(), event)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "webhook handler failed"))
	}

	return ctx.JSON(dto.WebhookAck{Received: true, Status: string(status)})
}
