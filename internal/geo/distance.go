package geo

import (
	"math"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// EarthRadius is the mean Earth radius in meters used by Distance.
const EarthRadius = 6371000.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in meters between two positions
// using the Haversine formula on a spherical Earth.
func Distance(p1, p2 core.Position) float64 {
	lat1, lon1 := radians(p1.Lat), radians(p1.Lon)
	lat2, lon2 := radians(p2.Lat), radians(p2.Lon)
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a marginally past 1 for antipodal points
	a = math.Min(1, a)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

// DistanceKm is Distance in kilometers.
func DistanceKm(p1, p2 core.Position) float64 {
	return Distance(p1, p2) / 1000
}

// Offset returns the position reached by moving north and east by the given
// number of meters from p. It is a flat-earth approximation meant for short hops.
func Offset(p core.Position, northMeters, eastMeters float64) core.Position {
	dLat := northMeters / EarthRadius
	dLon := eastMeters / (EarthRadius * math.Cos(radians(p.Lat)))
	return core.Position{
		Lat: p.Lat + dLat*180/math.Pi,
		Lon: p.Lon + dLon*180/math.Pi,
	}
}
