// Package trajectory loads the pre-computed trip files the simulation replays.
package trajectory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanetlab/vanetsim/internal/geo"
	"github.com/vanetlab/vanetsim/pkg/core"
)

// ErrNoTrajectories is returned when a file holds no trips.
var ErrNoTrajectories = errors.New("no trajectories in file")

// Set is the content of one trajectory file.
type Set struct {
	Trajectories []core.Trajectory
	// BoundingBox is the simulation area, nil when the file does not carry one.
	BoundingBox *geo.BoundingBox
}

type fileWrapper struct {
	SimulationData []trip           `json:"simulation_data"`
	BoundingBox    *geo.BoundingBox `json:"bounding_box"`
}

type trip struct {
	Route     json.RawMessage `json:"route"`
	Positions []sample        `json:"positions"`
	Offset    int             `json:"offset"`
}

// sample positions are [lon, lat] as produced by the routing service.
type sample struct {
	Position  [2]float64 `json:"position"`
	Timestamp float64    `json:"timestamp"`
}

// Load reads a trajectory file. Files ending in .gz are decompressed.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	set, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Decode parses either the wrapped {"simulation_data", "bounding_box"} form or a bare list of trips.
func Decode(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectories: %w", err)
	}

	var trips []trip
	var bbox *geo.BoundingBox

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &trips); err != nil {
			return nil, fmt.Errorf("failed to parse trajectories: %w", err)
		}
	} else {
		var w fileWrapper
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("failed to parse trajectories: %w", err)
		}
		trips = w.SimulationData
		bbox = w.BoundingBox
	}

	if len(trips) == 0 {
		return nil, ErrNoTrajectories
	}

	set := &Set{
		Trajectories: make([]core.Trajectory, len(trips)),
		BoundingBox:  bbox,
	}
	for i, t := range trips {
		set.Trajectories[i] = t.trajectory()
	}
	return set, nil
}

// OutsideBoundingBox returns the indexes of trajectories whose first waypoint lies
// outside the file's bounding box. It is empty when the file carries no box.
func (s *Set) OutsideBoundingBox() []int {
	if s.BoundingBox == nil || s.BoundingBox.Empty() {
		return nil
	}
	var out []int
	for i, t := range s.Trajectories {
		if len(t.Waypoints) > 0 && !s.BoundingBox.Contains(t.Waypoints[0].Position) {
			out = append(out, i)
		}
	}
	return out
}

// trajectory converts a trip, rebasing timestamps so the first sample is at 0.
// The generator writes wall-clock seconds; the simulation counts ticks from the trip start.
func (t trip) trajectory() core.Trajectory {
	out := core.Trajectory{
		Route:     t.Route,
		Offset:    t.Offset,
		Waypoints: make([]core.Waypoint, len(t.Positions)),
	}
	if len(t.Positions) == 0 {
		return out
	}

	base := t.Positions[0].Timestamp
	for i, s := range t.Positions {
		out.Waypoints[i] = core.Waypoint{
			Position:  core.Position{Lat: s.Position[1], Lon: s.Position[0]},
			Timestamp: s.Timestamp - base,
		}
	}
	return out
}
