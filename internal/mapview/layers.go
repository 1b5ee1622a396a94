package mapview

import (
	"fmt"
	"strings"

	"github.com/tetebueno/dawarich/internal/area"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/segment"
)

// heatIntensity is the weight every point contributes to the heatmap.
const heatIntensity = 0.2

type Marker struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Popup     string  `json:"popup"`
}

type Polyline struct {
	// Coordinates are [lat, lon] pairs in time order.
	Coordinates [][2]float64  `json:"coordinates"`
	Stats       segment.Stats `json:"stats"`
	Popup       string        `json:"popup"`
}

type Layers struct {
	Markers   []Marker     `json:"markers"`
	Heatmap   [][3]float64 `json:"heatmap"`
	Polylines []Polyline   `json:"polylines"`
	Areas     []area.Area  `json:"areas"`
	Fog       FogState     `json:"fog"`
	Circles   []Circle     `json:"fog_circles"`
}

// Layers renders the current state.
func (h *Handle) Layers() Layers {
	l := Layers{
		Markers:   make([]Marker, 0, len(h.state.Points)),
		Heatmap:   make([][3]float64, 0, len(h.state.Points)),
		Polylines: h.Polylines(),
		Areas:     h.cfg.Areas,
		Fog:       h.state.Fog,
		Circles:   []Circle{},
	}
	if l.Areas == nil {
		l.Areas = []area.Area{}
	}
	for _, p := range h.state.Points {
		l.Markers = append(l.Markers, Marker{
			ID:        p.ID,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Popup:     MarkerPopup(p),
		})
		l.Heatmap = append(l.Heatmap, [3]float64{p.Latitude, p.Longitude, heatIntensity})
	}
	if h.state.Fog == FogVisible {
		l.Circles = append(l.Circles, h.state.Circles...)
	}
	return l
}

func (h *Handle) Polylines() []Polyline {
	segs := h.state.Segments
	out := make([]Polyline, 0, len(segs))
	for i, s := range segs {
		st := segment.Describe(segs, i)
		coords := make([][2]float64, len(s))
		for j, p := range s {
			coords[j] = [2]float64{p.Latitude, p.Longitude}
		}
		out = append(out, Polyline{
			Coordinates: coords,
			Stats:       st,
			Popup:       segment.Popup(st, h.cfg.DistanceUnit),
		})
	}
	return out
}

// MarkerPopup is the HTML body shown when a point marker is clicked.
func MarkerPopup(p point.Point) string {
	lines := []string{
		"<b>Timestamp:</b> " + p.Time().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("<b>Latitude:</b> %.6f", p.Latitude),
		fmt.Sprintf("<b>Longitude:</b> %.6f", p.Longitude),
		fmt.Sprintf("<b>Altitude:</b> %g m", p.Altitude),
		fmt.Sprintf("<b>Speed:</b> %g km/h", p.Velocity),
		fmt.Sprintf("<b>Battery:</b> %g%%", p.Battery),
		fmt.Sprintf(`<a href="#" data-id="%d" class="delete-point">[Delete]</a>`, p.ID),
	}
	return strings.Join(lines, "<br>")
}
