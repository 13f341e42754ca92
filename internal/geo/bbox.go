package geo

import (
	"math"

	"github.com/vanetlab/vanetsim/pkg/core"
)

// kmPerDegree approximates one degree of latitude.
const kmPerDegree = 111.0

// BoundingBox is an axis-aligned box in decimal degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// ManualBoundingBox builds a square box of sizeKm around center.
// The smaller of the latitude and longitude offsets is used on both axes.
func ManualBoundingBox(center core.Position, sizeKm float64) BoundingBox {
	latOffset := sizeKm / kmPerDegree
	lonOffset := sizeKm / (kmPerDegree * math.Abs(math.Cos(radians(center.Lat))))
	offset := math.Min(latOffset, lonOffset)

	return BoundingBox{
		MinLat: center.Lat - offset/2,
		MaxLat: center.Lat + offset/2,
		MinLon: center.Lon - offset/2,
		MaxLon: center.Lon + offset/2,
	}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p core.Position) bool {
	return b.MinLat <= p.Lat && p.Lat <= b.MaxLat &&
		b.MinLon <= p.Lon && p.Lon <= b.MaxLon
}

// Empty reports whether the box was never set.
func (b BoundingBox) Empty() bool {
	return b == BoundingBox{}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() core.Position {
	return core.Position{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}
