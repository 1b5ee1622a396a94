package notification

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tetebueno/dawarich/internal/auth"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context(), auth.UserID(c), c.QueryBool("unread"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if list == nil {
			list = []Notification{}
		}
		return c.JSON(list)
	})

	r.Post("/read", authMiddleware, func(c *fiber.Ctx) error {
		n, err := svc.MarkAllRead(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"updated": n})
	})

	r.Post("/:id/read", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c, svc.MarkRead(c.Context(), auth.UserID(c), c.Params("id")))
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		return respond(c, svc.Delete(c.Context(), auth.UserID(c), c.Params("id")))
	})
}

func respond(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
