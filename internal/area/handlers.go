package area

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/validation"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Area
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		a, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		areas, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if areas == nil {
			areas = []Area{}
		}
		return c.JSON(areas)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		a, err := svc.Get(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return notFoundOr500(err)
		}
		return c.JSON(a)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Area
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		a, err := svc.Update(c.Context(), auth.UserID(c), c.Params("id"), req)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(a)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return notFoundOr500(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/visits", authMiddleware, func(c *fiber.Ctx) error {
		v, err := svc.Visits(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return notFoundOr500(err)
		}
		return c.JSON(v)
	})
}

func storeError(err error) error {
	if validation.IsInvalid(err) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return notFoundOr500(err)
}

func notFoundOr500(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
