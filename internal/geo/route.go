package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// ErrNoRouteGeometry is returned when a routing response carries no usable geometry.
var ErrNoRouteGeometry = errors.New("route has no geometry")

// osrmResponse is the subset of an OSRM /route response we read.
type osrmResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// RoutePositions extracts the first route's GeoJSON coordinates from a raw
// routing response. Coordinates are [lon, lat].
func RoutePositions(raw json.RawMessage) ([]core.Position, error) {
	if len(raw) == 0 {
		return nil, ErrNoRouteGeometry
	}
	var resp osrmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse route JSON: %w", err)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Geometry.Coordinates) < 2 {
		return nil, ErrNoRouteGeometry
	}

	coords := resp.Routes[0].Geometry.Coordinates
	positions := make([]core.Position, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		positions = append(positions, core.Position{Lat: c[1], Lon: c[0]})
	}
	return positions, nil
}

// RouteLineString returns the projected route geometry.
func RouteLineString(raw json.RawMessage) (geom.LineString, error) {
	positions, err := RoutePositions(raw)
	if err != nil {
		return geom.LineString{}, err
	}
	return LineString3857(positions)
}

// PathLength sums the Haversine distance along a sequence of positions, in meters.
func PathLength(positions []core.Position) float64 {
	var total float64
	for i := 1; i < len(positions); i++ {
		total += Distance(positions[i-1], positions[i])
	}
	return total
}
