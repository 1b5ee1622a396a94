// Package geo holds the spherical and Web-Mercator helpers shared by the
// segmentation, trip and map packages.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
)

const (
	// EarthCircumferenceM is the equatorial circumference used by web map tiles.
	EarthCircumferenceM = 40075016.686
	tileSize            = 256
	originShift         = math.Pi * orb.EarthRadius
)

// DistanceMeters is the haversine great-circle distance between two
// latitude/longitude pairs.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceMeters(lat1, lon1, lat2, lon2) / 1000
}

// MetersPerPixel approximates the ground resolution at a latitude and zoom.
func MetersPerPixel(lat float64, zoom float64) float64 {
	return EarthCircumferenceM * math.Cos(lat*math.Pi/180) / math.Pow(2, zoom+8)
}

// PixelRadius converts a real-world radius to screen pixels at a latitude and zoom.
func PixelRadius(radiusM, lat, zoom float64) float64 {
	mpp := MetersPerPixel(lat, zoom)
	if mpp <= 0 {
		return 0
	}
	return radiusM / mpp
}

// WorldPixel projects a coordinate to global Web-Mercator pixel space at zoom.
func WorldPixel(lat, lon, zoom float64) (x, y float64) {
	m := project.WGS84.ToMercator(orb.Point{lon, lat})
	size := tileSize * math.Pow(2, zoom)
	x = (m[0] + originShift) / (2 * originShift) * size
	y = (originShift - m[1]) / (2 * originShift) * size
	return x, y
}
