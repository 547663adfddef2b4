package planner

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config holds the trajectory shaping parameters.
type Config struct {
	LookaheadWps   int     `json:"lookahead_wps"`
	MaxDecel       float64 `json:"max_decel"`        // m/s^2 used to shape the stop profile
	StopLineOffset int     `json:"stop_line_offset"` // waypoints to stop short of the line
	VelocitySnap   float64 `json:"velocity_snap"`    // shaped speeds under this become 0

	FollowerMinLookahead   float64 `json:"follower_min_lookahead"`   // m
	FollowerLookaheadRatio float64 `json:"follower_lookahead_ratio"` // s, scaled by target speed
}

func DefaultConfig() Config {
	return Config{
		LookaheadWps:           70,
		MaxDecel:               0.5,
		StopLineOffset:         3,
		VelocitySnap:           0.1,
		FollowerMinLookahead:   6.0,
		FollowerLookaheadRatio: 2.0,
	}
}

// constantDecel is the per-waypoint speed bias added to the stop profile.
func (c Config) constantDecel() float64 {
	return 1 / float64(c.LookaheadWps)
}

func (c Config) Validate() error {
	var err error
	if c.LookaheadWps <= 0 {
		err = multierr.Append(err, errors.Errorf("lookahead_wps must be positive, got %d", c.LookaheadWps))
	}
	if c.MaxDecel <= 0 {
		err = multierr.Append(err, errors.Errorf("max_decel must be positive, got %g", c.MaxDecel))
	}
	if c.StopLineOffset < 0 {
		err = multierr.Append(err, errors.Errorf("stop_line_offset must not be negative, got %d", c.StopLineOffset))
	}
	if c.VelocitySnap < 0 {
		err = multierr.Append(err, errors.Errorf("velocity_snap must not be negative, got %g", c.VelocitySnap))
	}
	if c.FollowerMinLookahead <= 0 {
		err = multierr.Append(err, errors.Errorf("follower_min_lookahead must be positive, got %g", c.FollowerMinLookahead))
	}
	if c.FollowerLookaheadRatio < 0 {
		err = multierr.Append(err, errors.Errorf("follower_lookahead_ratio must not be negative, got %g", c.FollowerLookaheadRatio))
	}
	return err
}
