package controller

import (
	"errors"
	"strconv"

	"giving-ledger-be/internal/pkg/serverutils"
	"giving-ledger-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrPledgeNotFound), errors.Is(err, service.ErrTransactionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidInterval):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrPledgeCanceled),
		errors.Is(err, service.ErrNoSubscription),
		errors.Is(err, service.ErrSubscriptionExists),
		errors.Is(err, service.ErrNoCharge):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func writeError(ctx *fiber.Ctx, err error) error {
	code := statusFor(err)
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, err.Error()))
}

func idParam(ctx *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}
