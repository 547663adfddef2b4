package planner

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadRouteCSV reads a route file of x,y,z,yaw[,velocity] rows. Rows without
// a velocity column get defaultVelocity.
func LoadRouteCSV(path string, defaultVelocity float64) ([]Waypoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open route")
	}
	defer f.Close()

	route, err := ReadRoute(f, defaultVelocity)
	if err != nil {
		return nil, errors.Wrapf(err, "route %s", path)
	}
	return route, nil
}

func ReadRoute(src io.Reader, defaultVelocity float64) ([]Waypoint, error) {
	r := csv.NewReader(src)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	r.FieldsPerRecord = -1

	var route []Waypoint
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 4 || len(rec) > 5 {
			return nil, errors.Errorf("row %d: want 4 or 5 fields, got %d", line, len(rec))
		}

		vals := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d field %d", line, i+1)
			}
			vals[i] = v
		}

		wp := Waypoint{X: vals[0], Y: vals[1], Z: vals[2], Yaw: vals[3], Velocity: defaultVelocity}
		if len(vals) == 5 {
			wp.Velocity = vals[4]
		}
		if wp.Velocity < 0 {
			return nil, errors.Errorf("row %d: negative velocity %g", line, wp.Velocity)
		}
		route = append(route, wp)
	}

	if len(route) == 0 {
		return nil, ErrEmptyRoute
	}
	return route, nil
}
