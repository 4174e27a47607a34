package controller

import (
	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/pkg/serverutils"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUsageController interface {
	RegisterRoutes(r fiber.Router)
	GetUsageStats(ctx *fiber.Ctx) error
	AddCredits(ctx *fiber.Ctx) error
}

type usageController struct {
	ledger service.ILedgerService
}

func NewUsageController(ledger service.ILedgerService) IUsageController {
	return &usageController{ledger: ledger}
}

func (c *usageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/usage")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/", c.GetUsageStats)
	h.Post("/credits", c.AddCredits)
}

func (c *usageController) GetUsageStats(ctx *fiber.Ctx) error {
	res, err := c.ledger.GetUsageStats(ctx.Context(), currentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Usage stats", res))
}

func (c *usageController) AddCredits(ctx *fiber.Ctx) error {
	var req dto.AddCreditsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.ledger.AddCredits(ctx.Context(), currentUserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Credits added", res))
}
