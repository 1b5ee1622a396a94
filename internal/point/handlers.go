package point

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/validation"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Point
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validation.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Post("/batch", authMiddleware, func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validation.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		points, err := svc.CreateBatch(c.Context(), auth.UserID(c), req.Points)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"created": len(points)})
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		start, end, err := ParseRange(c.Query("start_at"), c.Query("end_at"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		points, err := svc.InRange(c.Context(), auth.UserID(c), start, end)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if points == nil {
			points = []Point{}
		}
		return c.JSON(points)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid point id")
		}
		p, err := svc.Get(c.Context(), auth.UserID(c), id)
		if errors.Is(err, pgx.ErrNoRows) {
			return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(p)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid point id")
		}
		err = svc.Delete(c.Context(), auth.UserID(c), id)
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"message": "Point deleted successfully"})
	})
}
