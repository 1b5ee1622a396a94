// Package mapview builds the map layers for a user's track: markers, heatmap,
// route polylines, areas and the fog-of-war overlay.
//
// The HTTP handlers build a Handle per request. A client that keeps a Handle
// alive across user events drives it with ToggleFog, SetViewport and
// DeletePoint; APIDeleter lets such a client delete through a running server.
package mapview

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/tetebueno/dawarich/internal/area"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/segment"
	"github.com/tetebueno/dawarich/internal/shared/geo"
)

var errNoDeleter = errors.New("mapview: no point deleter configured")

type FogState string

const (
	FogHidden  FogState = "hidden"
	FogVisible FogState = "visible"
)

// FogLayerName is the overlay name the layer control reports.
const FogLayerName = "Fog of War"

// Viewport is the visible map rectangle in screen pixels around a centre.
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      float64 `json:"zoom"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// origin is the world pixel at the viewport's top-left corner.
func (v Viewport) origin() (float64, float64) {
	cx, cy := geo.WorldPixel(v.CenterLat, v.CenterLon, v.Zoom)
	return cx - v.Width/2, cy - v.Height/2
}

type Config struct {
	Points       []point.Point
	Areas        []area.Area
	Thresholds   segment.Thresholds
	FogRadiusM   float64
	DistanceUnit string
	Viewport     Viewport
	Deleter      PointDeleter
	Logger       *zerolog.Logger
}

// State is everything the map mutates in response to user events.
type State struct {
	Points   []point.Point
	Segments []segment.Segment
	Fog      FogState
	Viewport Viewport
	// Circles is only populated while the fog is visible.
	Circles []Circle
}

// Circle is a cleared fog region in viewport pixels.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

type Handle struct {
	cfg   Config
	state State
	log   zerolog.Logger
}

// Initialize builds the working set from cfg. The fog starts hidden.
func Initialize(cfg Config) *Handle {
	h := &Handle{cfg: cfg}
	if cfg.Logger != nil {
		h.log = *cfg.Logger
	} else {
		h.log = logging.With().Str("component", "mapview").Logger()
	}
	h.state = State{
		Points:   append([]point.Point(nil), cfg.Points...),
		Fog:      FogHidden,
		Viewport: cfg.Viewport,
	}
	h.state.Segments = segment.Split(h.state.Points, cfg.Thresholds)
	return h
}

// Teardown releases the handle's working set. The handle must not be used
// afterwards.
func Teardown(h *Handle) {
	if h == nil {
		return
	}
	h.state = State{}
	h.cfg = Config{}
}

// State returns a snapshot of the current state.
func (h *Handle) State() State {
	s := h.state
	s.Points = append([]point.Point(nil), h.state.Points...)
	s.Circles = append([]Circle(nil), h.state.Circles...)
	return s
}

// OverlayAdded and OverlayRemoved mirror the layer control's events.
func (h *Handle) OverlayAdded(name string) {
	if name == FogLayerName {
		h.setFog(FogVisible)
	}
}

func (h *Handle) OverlayRemoved(name string) {
	if name == FogLayerName {
		h.setFog(FogHidden)
	}
}

func (h *Handle) ToggleFog() FogState {
	if h.state.Fog == FogVisible {
		h.setFog(FogHidden)
	} else {
		h.setFog(FogVisible)
	}
	return h.state.Fog
}

func (h *Handle) setFog(s FogState) {
	h.state.Fog = s
	if s == FogVisible {
		h.recomputeFog()
		return
	}
	h.state.Circles = nil
}

// SetViewport handles zoom and pan.
func (h *Handle) SetViewport(v Viewport) {
	h.state.Viewport = v
	if h.state.Fog == FogVisible {
		h.recomputeFog()
	}
}

func (h *Handle) recomputeFog() {
	v := h.state.Viewport
	ox, oy := v.origin()
	circles := make([]Circle, 0, len(h.state.Points))
	for _, p := range h.state.Points {
		r := geo.PixelRadius(h.cfg.FogRadiusM, p.Latitude, v.Zoom)
		wx, wy := geo.WorldPixel(p.Latitude, p.Longitude, v.Zoom)
		c := Circle{X: wx - ox, Y: wy - oy, Radius: r}
		if v.Width > 0 && v.Height > 0 && !c.intersects(v.Width, v.Height) {
			continue
		}
		circles = append(circles, c)
	}
	h.state.Circles = circles
}

func (c Circle) intersects(width, height float64) bool {
	return c.X+c.Radius >= 0 && c.X-c.Radius <= width &&
		c.Y+c.Radius >= 0 && c.Y-c.Radius <= height
}

// DeletePoint asks the deleter to remove the point. On success the point
// leaves the working set and routes are recomputed; on failure the error is
// logged and the state is left as it was.
func (h *Handle) DeletePoint(ctx context.Context, id int64) error {
	if h.cfg.Deleter == nil {
		return errNoDeleter
	}
	if err := h.cfg.Deleter.DeletePoint(ctx, id); err != nil {
		h.log.Error().Err(err).Int64("point_id", id).Msg("delete point failed")
		return err
	}

	kept := h.state.Points[:0:0]
	for _, p := range h.state.Points {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	h.state.Points = kept
	h.state.Segments = segment.Split(kept, h.cfg.Thresholds)
	if h.state.Fog == FogVisible {
		h.recomputeFog()
	}
	return nil
}
