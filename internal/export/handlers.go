package export

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/storage"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req createRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		start, end, err := point.ParseRange(req.StartAt, req.EndAt)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		e, err := svc.Request(c.Context(), auth.UserID(c), start, end)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusAccepted).JSON(e)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if list == nil {
			list = []Export{}
		}
		return c.JSON(list)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		e, err := svc.Get(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(e)
	})

	r.Get("/:id/download", authMiddleware, func(c *fiber.Ctx) error {
		rc, e, err := svc.Open(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Attachment(e.Name + ".json")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotReady):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
