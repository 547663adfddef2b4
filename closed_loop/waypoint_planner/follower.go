package planner

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Follower is a pure-pursuit tracker: it steers along the arc that joins the
// vehicle to a lane waypoint a speed-dependent distance ahead.
type Follower struct {
	minLookahead float64
	ratio        float64
}

func NewFollower(cfg Config) Follower {
	return Follower{minLookahead: cfg.FollowerMinLookahead, ratio: cfg.FollowerLookaheadRatio}
}

// Twist returns the target linear and angular velocity for pose on lane.
func (f Follower) Twist(pose Pose, lane Lane) (linear, angular float64, ok bool) {
	if len(lane.Waypoints) == 0 {
		return 0, 0, false
	}
	linear = lane.Waypoints[0].Velocity
	lookahead := math.Max(f.minLookahead, f.ratio*linear)

	pos := pose.xy()
	target := lane.Waypoints[len(lane.Waypoints)-1].xy()
	for _, wp := range lane.Waypoints {
		if r2.Norm(r2.Sub(wp.xy(), pos)) >= lookahead {
			target = wp.xy()
			break
		}
	}

	d := r2.Sub(target, pos)
	l2 := r2.Dot(d, d)
	if l2 < 1e-9 {
		return linear, 0, true
	}
	// lateral offset of the target in the vehicle frame
	lateral := -math.Sin(pose.Yaw)*d.X + math.Cos(pose.Yaw)*d.Y
	curvature := 2 * lateral / l2
	return linear, linear * curvature, true
}
