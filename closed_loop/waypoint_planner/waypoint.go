// Package planner builds the look-ahead trajectory the vehicle follows: it
// locates the vehicle on a fixed cyclic route, slices the next waypoints,
// and shapes their speeds down to zero ahead of a required stop line.
package planner

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoStopLine is the stop-line index meaning no stop is required.
const NoStopLine = -1

// Waypoint is one route point with the speed the route allows there.
type Waypoint struct {
	X, Y, Z  float64
	Yaw      float64 // rad
	Velocity float64 // m/s
}

func (w Waypoint) xy() r2.Vec {
	return r2.Vec{X: w.X, Y: w.Y}
}

func (w Waypoint) xyz() r3.Vec {
	return r3.Vec{X: w.X, Y: w.Y, Z: w.Z}
}

// Pose is the latest vehicle position and heading.
type Pose struct {
	X, Y, Z float64
	Yaw     float64 // rad
	Stamp   time.Time
}

func (p Pose) xy() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Lane is one look-ahead window handed downstream.
type Lane struct {
	ClosestIdx   int        // route index of Waypoints[0]
	StopIdx      int        // window index of the stop point, -1 when not decelerating
	Waypoints    []Waypoint // speed-shaped copies, never aliases of the route
	Decelerating bool
}

func distance(a, b Waypoint) float64 {
	return r3.Norm(r3.Sub(a.xyz(), b.xyz()))
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
