package trip

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/segment"
	"github.com/tetebueno/dawarich/internal/validation"
)

// SettingsSource supplies the user's route thresholds and distance unit.
type SettingsSource interface {
	Settings(ctx context.Context, userID string) (auth.Settings, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, settings SettingsSource, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Trip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.CreateTrip(c.Context(), auth.UserID(c), req)
		if err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		trips, err := svc.ListTrips(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if trips == nil {
			trips = []Trip{}
		}
		return c.JSON(trips)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		st, err := settings.Settings(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		path, err := svc.Path(c.Context(), userID, c.Params("id"), segment.Thresholds{
			Meters:  float64(st.MetersBetweenRoutes),
			Minutes: float64(st.MinutesBetweenRoutes),
		}, st.DistanceUnit)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(path)
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req Trip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.UpdateTrip(c.Context(), auth.UserID(c), c.Params("id"), req)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(trip)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteTrip(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// storeError maps create and update failures: bad input is the caller's
// fault, anything else is ours.
func storeError(err error) error {
	if validation.IsInvalid(err) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return toFiberError(err)
}

func toFiberError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
