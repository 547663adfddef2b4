package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	control "dbw-waypoint-core/closed_loop/twist_control"
	planner "dbw-waypoint-core/closed_loop/waypoint_planner"
)

// VehicleConfig is the startup configuration file. It is read once and never
// changed while running.
type VehicleConfig struct {
	Meta    ConfigMeta          `json:"meta"`
	Control control.TwistConfig `json:"control"`
	Planner planner.Config      `json:"planner"`
	Loop    LoopConfig          `json:"loop"`
	Route   RouteConfig         `json:"route"`
	Frames  FrameNames          `json:"can_frames"`
}

type ConfigMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// LoopConfig sets the periodic schedule of both loops.
type LoopConfig struct {
	ControlHz         float64 `json:"control_hz"`
	PlannerHz         float64 `json:"planner_hz"`
	FeedbackTimeoutMS int     `json:"feedback_timeout_ms"`
	DurationS         float64 `json:"duration_s"`   // 0 runs until interrupted
	TwistSource       string  `json:"twist_source"` // "planner" or "can"
}

type RouteConfig struct {
	Path            string  `json:"path"`
	DefaultVelocity float64 `json:"default_velocity"` // m/s for rows without a speed column
}

// FrameNames binds each input and output to a frame of the CAN map.
type FrameNames struct {
	VehicleState string `json:"vehicle_state"`
	Pose         string `json:"pose"`
	DBWState     string `json:"dbw_state"`
	StopLine     string `json:"stop_line"`
	TwistCmd     string `json:"twist_cmd"`
	Command      string `json:"command"`
	LaneStatus   string `json:"lane_status"` // optional
}

const (
	twistFromPlanner = "planner"
	twistFromCAN     = "can"
)

func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{
		Control: control.DefaultTwistConfig(),
		Planner: planner.DefaultConfig(),
		Loop: LoopConfig{
			ControlHz:         50,
			PlannerHz:         30,
			FeedbackTimeoutMS: 500,
			TwistSource:       twistFromPlanner,
		},
		Route: RouteConfig{
			DefaultVelocity: 11.1,
		},
		Frames: FrameNames{
			VehicleState: "VEHICLE_STATE_1",
			Pose:         "POSE_1",
			DBWState:     "DBW_STATE",
			StopLine:     "STOPLINE_WP",
			TwistCmd:     "TWIST_CMD",
			Command:      "DBW_CMD",
			LaneStatus:   "LANE_STATUS",
		},
	}
}

// LoadVehicleConfig overlays the file onto the defaults and validates the
// result.
func LoadVehicleConfig(path string) (VehicleConfig, error) {
	cfg := DefaultVehicleConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return VehicleConfig{}, errors.Wrap(err, "read file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return VehicleConfig{}, errors.Wrap(err, "unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return VehicleConfig{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func (c VehicleConfig) Validate() error {
	err := multierr.Combine(c.Control.Validate(), c.Planner.Validate())

	if c.Loop.ControlHz <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid control_hz: %g", c.Loop.ControlHz))
	}
	if c.Loop.PlannerHz <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid planner_hz: %g", c.Loop.PlannerHz))
	}
	if c.Loop.FeedbackTimeoutMS <= 0 {
		err = multierr.Append(err, errors.Errorf("invalid feedback_timeout_ms: %d", c.Loop.FeedbackTimeoutMS))
	}
	if c.Loop.DurationS < 0 {
		err = multierr.Append(err, errors.Errorf("invalid duration_s: %g", c.Loop.DurationS))
	}
	if c.Loop.TwistSource != twistFromPlanner && c.Loop.TwistSource != twistFromCAN {
		err = multierr.Append(err, errors.Errorf("twist_source must be %q or %q, got %q",
			twistFromPlanner, twistFromCAN, c.Loop.TwistSource))
	}
	if c.Route.DefaultVelocity < 0 {
		err = multierr.Append(err, errors.Errorf("invalid default_velocity: %g", c.Route.DefaultVelocity))
	}

	for name, frame := range map[string]string{
		"vehicle_state": c.Frames.VehicleState,
		"pose":          c.Frames.Pose,
		"dbw_state":     c.Frames.DBWState,
		"stop_line":     c.Frames.StopLine,
		"twist_cmd":     c.Frames.TwistCmd,
		"command":       c.Frames.Command,
	} {
		if frame == "" {
			err = multierr.Append(err, errors.Errorf("can_frames.%s must be set", name))
		}
	}
	return err
}
