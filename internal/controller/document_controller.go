package controller

import (
	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/pkg/serverutils"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	CreateTemplate(ctx *fiber.Ctx) error
	GetTemplates(ctx *fiber.Ctx) error
	GetTemplate(ctx *fiber.Ctx) error
	GenerateDocument(ctx *fiber.Ctx) error
	GetDocuments(ctx *fiber.Ctx) error
	GetDocument(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error
	AiAssist(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents")
	h.Use(serverutils.JwtMiddleware)

	h.Get("/templates", c.GetTemplates)
	h.Get("/templates/:id", c.GetTemplate)
	h.Post("/templates", serverutils.AdminOnly, c.CreateTemplate)

	h.Post("/generate", c.GenerateDocument)
	h.Get("/", c.GetDocuments)
	h.Get("/:id", c.GetDocument)
	h.Delete("/:id", c.DeleteDocument)
	h.Post("/ai-assist", c.AiAssist)
}

func idParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (c *documentController) CreateTemplate(ctx *fiber.Ctx) error {
	var req dto.CreateTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.CreateTemplate(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Template created", res))
}

func (c *documentController) GetTemplates(ctx *fiber.Ctx) error {
	res, err := c.service.GetTemplates(ctx.Context(), ctx.Query("category"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Templates fetched", res))
}

func (c *documentController) GetTemplate(ctx *fiber.Ctx) error {
	templateId, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetTemplate(ctx.Context(), templateId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Template fetched", res))
}

func (c *documentController) GenerateDocument(ctx *fiber.Ctx) error {
	var req dto.GenerateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.GenerateDocument(ctx.Context(), currentUserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document generated", res))
}

func (c *documentController) GetDocuments(ctx *fiber.Ctx) error {
	res, err := c.service.GetDocuments(ctx.Context(), currentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Documents fetched", res))
}

func (c *documentController) GetDocument(ctx *fiber.Ctx) error {
	documentId, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetDocument(ctx.Context(), currentUserId(ctx), documentId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document fetched", res))
}

func (c *documentController) DeleteDocument(ctx *fiber.Ctx) error {
	documentId, err := idParam(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteDocument(ctx.Context(), currentUserId(ctx), documentId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}

func (c *documentController) AiAssist(ctx *fiber.Ctx) error {
	var req dto.AiAssistRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.AiAssist(ctx.Context(), currentUserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Suggestion generated", res))
}
