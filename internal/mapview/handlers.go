package mapview

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tetebueno/dawarich/internal/area"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/segment"
)

const defaultZoom = 12

type PointSource interface {
	InRange(ctx context.Context, userID string, startAt, endAt int64) ([]point.Point, error)
}

type AreaSource interface {
	List(ctx context.Context, userID string) ([]area.Area, error)
}

type SettingsSource interface {
	Settings(ctx context.Context, userID string) (auth.Settings, error)
}

type Sources struct {
	Points   PointSource
	Areas    AreaSource
	Settings SettingsSource
}

func RegisterRoutes(r fiber.Router, src Sources, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		h, err := load(c, src)
		if err != nil {
			return err
		}
		defer Teardown(h)
		return c.JSON(h.Layers())
	})

	r.Get("/polylines", authMiddleware, func(c *fiber.Ctx) error {
		h, err := load(c, src)
		if err != nil {
			return err
		}
		defer Teardown(h)
		return c.JSON(h.Polylines())
	})

	r.Get("/geojson", authMiddleware, func(c *fiber.Ctx) error {
		h, err := load(c, src)
		if err != nil {
			return err
		}
		defer Teardown(h)
		return c.JSON(segment.FeatureCollection(h.state.Segments, h.cfg.DistanceUnit), "application/geo+json")
	})
}

func load(c *fiber.Ctx, src Sources) (*Handle, error) {
	userID := auth.UserID(c)
	startAt, endAt, err := point.ParseRange(c.Query("start_at"), c.Query("end_at"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	vp, err := parseViewport(c)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	st, err := src.Settings.Settings(c.Context(), userID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	points, err := src.Points.InRange(c.Context(), userID, startAt, endAt)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	areas, err := src.Areas.List(c.Context(), userID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if c.Query("lat") == "" && c.Query("lon") == "" && len(points) > 0 {
		last := points[len(points)-1]
		vp.CenterLat, vp.CenterLon = last.Latitude, last.Longitude
	}

	h := Initialize(Config{
		Points: points,
		Areas:  areas,
		Thresholds: segment.Thresholds{
			Meters:  float64(st.MetersBetweenRoutes),
			Minutes: float64(st.MinutesBetweenRoutes),
		},
		FogRadiusM:   float64(st.FogOfWarMeters),
		DistanceUnit: st.DistanceUnit,
	})
	// Replay the client's events: the fog layer first, then the move to its
	// viewport, which is what clears the circles.
	if c.Query("fog") == string(FogVisible) {
		h.OverlayAdded(FogLayerName)
	}
	h.SetViewport(vp)
	return h, nil
}

func parseViewport(c *fiber.Ctx) (Viewport, error) {
	vp := Viewport{Zoom: defaultZoom}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"lat", &vp.CenterLat},
		{"lon", &vp.CenterLon},
		{"zoom", &vp.Zoom},
		{"width", &vp.Width},
		{"height", &vp.Height},
	}
	for _, f := range fields {
		raw := c.Query(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Viewport{}, fmt.Errorf("invalid %s %q", f.name, raw)
		}
		*f.dst = v
	}
	return vp, nil
}
