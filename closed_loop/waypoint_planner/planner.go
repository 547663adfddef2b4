package planner

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"

	"dbw-waypoint-core/utils"
)

var (
	ErrEmptyRoute = errors.New("route has no waypoints")
	ErrNoRoute    = errors.New("no route loaded")
)

// Planner owns the current route and its spatial index. It is not safe for
// concurrent use; the planner loop is its only caller.
type Planner struct {
	cfg Config
	log *utils.Logger

	route []Waypoint
	index *RouteIndex
}

func NewPlanner(cfg Config, log *utils.Logger) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg, log: log}, nil
}

// LoadRoute replaces the route. The index is rebuilt only when the payload
// differs from the one already loaded; the return value reports whether a
// rebuild happened.
func (p *Planner) LoadRoute(route []Waypoint) (bool, error) {
	if len(route) == 0 {
		return false, ErrEmptyRoute
	}
	if p.index != nil && slices.Equal(p.route, route) {
		p.log.Trace("route unchanged (%d waypoints); index kept", len(route))
		return false, nil
	}

	idx, err := NewRouteIndex(route)
	if err != nil {
		return false, err
	}
	p.route = slices.Clone(route)
	p.index = idx
	p.log.Info("route loaded: %d waypoints, index rebuilt", len(route))
	return true, nil
}

func (p *Planner) Route() []Waypoint {
	return p.route
}

// ClosestWaypointIndex returns the first route index at or ahead of the
// vehicle along the direction of travel.
func (p *Planner) ClosestWaypointIndex(pose Pose) (int, error) {
	if p.index == nil {
		return 0, ErrNoRoute
	}

	n := len(p.route)
	pos := pose.xy()
	closest := p.index.Nearest(pos)

	cl := p.route[closest].xy()

	// Direction of travel through the nearest waypoint. The route start has
	// no trustworthy predecessor on an open route, so use the next segment.
	var heading r2.Vec
	if closest == 0 {
		heading = r2.Sub(p.route[1%n].xy(), cl)
	} else {
		heading = r2.Sub(cl, p.route[closest-1].xy())
	}

	// Positive when the vehicle has already passed the nearest waypoint.
	if r2.Dot(heading, r2.Sub(pos, cl)) > 0 {
		closest = (closest + 1) % n
	}
	return closest, nil
}

// LocateAndWindow produces the look-ahead lane for the given pose. The
// window wraps past the end of the cyclic route. When the stop line falls
// inside the window the waypoint speeds are shaped to stop short of it.
func (p *Planner) LocateAndWindow(pose Pose, stopLine int) (Lane, error) {
	closest, err := p.ClosestWaypointIndex(pose)
	if err != nil {
		return Lane{}, err
	}

	n := len(p.route)
	size := min(p.cfg.LookaheadWps, n)
	window := make([]Waypoint, size)
	for i := range window {
		window[i] = p.route[(closest+i)%n]
	}

	lane := Lane{ClosestIdx: closest, StopIdx: -1, Waypoints: window}

	stopIdx, ok := p.stopIndex(closest, stopLine, size)
	if !ok {
		return lane, nil
	}

	lane.Waypoints = p.decelerate(window, stopIdx)
	lane.StopIdx = stopIdx
	lane.Decelerating = true
	p.log.Trace("decelerating lane: closest=%d stopline=%d stop_idx=%d", closest, stopLine, stopIdx)
	return lane, nil
}

// stopIndex maps a route stop-line index to the window index where the
// vehicle should come to rest.
func (p *Planner) stopIndex(closest, stopLine, size int) (int, bool) {
	n := len(p.route)
	if stopLine < 0 {
		return 0, false
	}
	if stopLine >= n {
		p.log.Warn("stop line %d outside route of %d waypoints; ignored", stopLine, n)
		return 0, false
	}

	if ahead := mod(stopLine-closest, n); ahead < size {
		return max(ahead-p.cfg.StopLineOffset, 0), true
	}
	// Rolled just past the line: hold where we are.
	if behind := mod(closest-stopLine, n); behind <= p.cfg.StopLineOffset {
		return 0, true
	}
	return 0, false
}

// decelerate returns copies of window whose speeds follow
// sqrt(2*a*d) + i*bias toward stopIdx and are zero from stopIdx on. A
// shaped speed never exceeds the route speed.
func (p *Planner) decelerate(window []Waypoint, stopIdx int) []Waypoint {
	arc := make([]float64, len(window))
	for i := 1; i < len(window); i++ {
		arc[i] = arc[i-1] + distance(window[i-1], window[i])
	}

	out := make([]Waypoint, len(window))
	for i, wp := range window {
		vel := 0.0
		if i < stopIdx {
			dist := arc[stopIdx] - arc[i]
			vel = math.Sqrt(2*p.cfg.MaxDecel*dist) + float64(i)*p.cfg.constantDecel()
		}
		vel = math.Min(vel, wp.Velocity)
		if vel < p.cfg.VelocitySnap {
			vel = 0
		}
		wp.Velocity = vel
		out[i] = wp
	}
	return out
}
