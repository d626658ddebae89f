package controller

import (
	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IAdminController exposes staff actions that drive the processor.
type IAdminController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	SubscribePledge(ctx *fiber.Ctx) error
	CancelPledge(ctx *fiber.Ctx) error
	ResumePledge(ctx *fiber.Ctx) error
	UpdatePledgeAmount(ctx *fiber.Ctx) error
	RefundTransaction(ctx *fiber.Ctx) error
}

type adminController struct {
	pledges service.IPledgeService
}

func NewAdminController(pledges service.IPledgeService) IAdminController {
	return &adminController{pledges: pledges}
}

func (c *adminController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/admin", auth)
	h.Post("/pledges/:id/subscribe", c.SubscribePledge)
	h.Post("/pledges/:id/cancel", c.CancelPledge)
	h.Post("/pledges/:id/resume", c.ResumePledge)
	h.Patch("/pledges/:id/amount", c.UpdatePledgeAmount)
	h.Post("/transactions/:id/refund", c.RefundTransaction)
}

func (c *adminController) SubscribePledge(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var req dto.SubscribePledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.pledges.CreateSubscriptionForPledge(ctx.UserContext(), id, req.PaymentMethodId)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription created", res))
}

func (c *adminController) CancelPledge(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	res, err := c.pledges.CancelSubscriptionAtPeriodEnd(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Pledge will cancel at period end", res))
}

func (c *adminController) ResumePledge(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	res, err := c.pledges.ResumeSubscription(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Pledge resumed", res))
}

func (c *adminController) UpdatePledgeAmount(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdatePledgeAmountRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.pledges.UpdateSubscriptionAmount(ctx.UserContext(), id, req.AmountCents)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Pledge amount updated", res))
}

func (c *adminController) RefundTransaction(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	res, err := c.pledges.Refund(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund requested", res))
}
