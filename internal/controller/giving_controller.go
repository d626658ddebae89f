package controller

import (
	"giving-ledger-be/internal/dto"
	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGivingController interface {
	RegisterRoutes(r fiber.Router)
	StartPledge(ctx *fiber.Ctx) error
	StartOneTimeGift(ctx *fiber.Ctx) error
	GetPledge(ctx *fiber.Ctx) error
	ListTransactions(ctx *fiber.Ctx) error
	GetTransaction(ctx *fiber.Ctx) error
}

type givingController struct {
	pledges service.IPledgeService
	reads   service.IGivingService
}

func NewGivingController(pledges service.IPledgeService, reads service.IGivingService) IGivingController {
	return &givingController{
		pledges: pledges,
		reads:   reads,
	}
}

func (c *givingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/giving")
	h.Post("/pledges", c.StartPledge)
	h.Post("/one-time", c.StartOneTimeGift)
	h.Get("/pledges/:id", c.GetPledge)
	h.Get("/transactions", c.ListTransactions)
	h.Get("/transactions/:id", c.GetTransaction)
}

func (c *givingController) StartPledge(ctx *fiber.Ctx) error {
	var req dto.StartPledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.pledges.StartPledge(ctx.UserContext(), &req)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Pledge started", res))
}

func (c *givingController) StartOneTimeGift(ctx *fiber.Ctx) error {
	var req dto.StartOneTimeGiftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.pledges.StartOneTimeGift(ctx.UserContext(), &req)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Gift started", res))
}

func (c *givingController) GetPledge(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	res, err := c.reads.GetPledge(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Pledge", res))
}

func (c *givingController) GetTransaction(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	res, err := c.reads.GetTransaction(ctx.UserContext(), id)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Transaction", res))
}

func (c *givingController) ListTransactions(ctx *fiber.Ctx) error {
	var filter dto.ListTransactionsFilter
	if err := ctx.QueryParser(&filter); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(filter); err != nil {
		return err
	}

	items, total, err := c.reads.ListTransactions(ctx.UserContext(), filter)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Transactions", serverutils.PagedData{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}))
}
