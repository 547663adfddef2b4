package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func laneOf(wps []Waypoint) Lane {
	return Lane{Waypoints: wps, StopIdx: -1}
}

func TestFollowerStraightAhead(t *testing.T) {
	f := NewFollower(DefaultConfig())

	linear, angular, ok := f.Twist(Pose{}, laneOf(straightRoute(30, 1, 8)))

	assert.True(t, ok)
	assert.Equal(t, 8.0, linear)
	assert.InDelta(t, 0, angular, 1e-12)
}

func TestFollowerTurnsTowardTarget(t *testing.T) {
	f := NewFollower(DefaultConfig())
	left := make([]Waypoint, 30)
	for i := range left {
		left[i] = Waypoint{X: float64(i), Y: 0.05 * float64(i*i), Velocity: 5}
	}

	_, angular, ok := f.Twist(Pose{}, laneOf(left))
	assert.True(t, ok)
	assert.Greater(t, angular, 0.0)

	right := make([]Waypoint, len(left))
	for i, wp := range left {
		wp.Y = -wp.Y
		right[i] = wp
	}
	_, angular, _ = f.Twist(Pose{}, laneOf(right))
	assert.Less(t, angular, 0.0)
}

func TestFollowerCurvatureOnCircle(t *testing.T) {
	cfg := DefaultConfig()
	f := NewFollower(cfg)
	route := circleRoute(360, 50, 10)

	pose := Pose{X: route[0].X, Y: route[0].Y, Yaw: math.Pi / 2}
	linear, angular, ok := f.Twist(pose, laneOf(route[1:71]))

	assert.True(t, ok)
	assert.InDelta(t, linear/50, angular, 0.002)
}

func TestFollowerEmptyLane(t *testing.T) {
	_, _, ok := NewFollower(DefaultConfig()).Twist(Pose{}, Lane{})
	assert.False(t, ok)
}
