package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/vanetlab/vanetsim/pkg/core"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Positions are persisted in EPSG:3857 so SQLite, which has no spatial awareness,
// and PostGIS read the same WKB columns.

// ErrInvalidCoordinates is returned when a position is outside the WGS84 range
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// webMercatorMaxLat is the latitude limit of EPSG:3857.
const webMercatorMaxLat = 85.06

// ValidPosition reports whether p can be projected.
func ValidPosition(p core.Position) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return math.Abs(p.Lat) <= webMercatorMaxLat && math.Abs(p.Lon) <= 180
}

func project(p core.Position) (float64, float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(p.Lon, p.Lat, 0)
	return x, y
}

// Point3857 projects a WGS84 position to a web mercator point.
func Point3857(p core.Position) (geom.Point, error) {
	if !ValidPosition(p) {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	x, y := project(p)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	}), nil
}

// FromPoint3857 is the inverse of Point3857. It reports false for an empty point.
func FromPoint3857(pt geom.Point) (core.Position, bool) {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position{}, false
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(c.XY.X, c.XY.Y, 0)
	return core.Position{Lat: lat, Lon: lon}, true
}

// Segment3857 returns the projected line between two connected vehicles.
func Segment3857(a, b core.Position) (geom.LineString, error) {
	return LineString3857([]core.Position{a, b})
}

// LineString3857 projects a sequence of positions into a web mercator line string.
func LineString3857(positions []core.Position) (geom.LineString, error) {
	if len(positions) < 2 {
		return geom.LineString{}, ErrInvalidCoordinates
	}
	flat := make([]float64, 0, len(positions)*2)
	for _, p := range positions {
		if !ValidPosition(p) {
			return geom.LineString{}, ErrInvalidCoordinates
		}
		x, y := project(p)
		flat = append(flat, x, y)
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}
