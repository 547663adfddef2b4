package main

import (
	"math"

	"github.com/pkg/errors"
	"go.einride.tech/can"

	"dbw-waypoint-core/closed_loop/inputs"
	control "dbw-waypoint-core/closed_loop/twist_control"
	planner "dbw-waypoint-core/closed_loop/waypoint_planner"
	"dbw-waypoint-core/utils"
)

// Signal names expected in the CAN map for each bound frame.
const (
	sigVehicleSpeed = "vehicle_speed_mps"
	sigYawRate      = "yaw_rate_rps"
	sigPosX         = "pos_x_m"
	sigPosY         = "pos_y_m"
	sigYaw          = "yaw_rad"
	sigDBWEnabled   = "dbw_enabled"
	sigStopLine     = "stopline_wp_idx"
	sigTwistLinear  = "twist_linear_mps"
	sigTwistAngular = "twist_angular_rps"

	sigThrottle = "throttle_cmd"
	sigBrake    = "brake_cmd_nm"
	sigSteer    = "steer_cmd_rad"

	sigClosestWp = "closest_wp_idx"
	sigStopIdx   = "stop_idx"
	sigTargetVel = "target_velocity_mps"
)

var requiredSignals = map[string]func(FrameNames) string{
	sigVehicleSpeed: func(f FrameNames) string { return f.VehicleState },
	sigPosX:         func(f FrameNames) string { return f.Pose },
	sigPosY:         func(f FrameNames) string { return f.Pose },
	sigYaw:          func(f FrameNames) string { return f.Pose },
	sigDBWEnabled:   func(f FrameNames) string { return f.DBWState },
	sigStopLine:     func(f FrameNames) string { return f.StopLine },
	sigTwistLinear:  func(f FrameNames) string { return f.TwistCmd },
	sigTwistAngular: func(f FrameNames) string { return f.TwistCmd },
	sigThrottle:     func(f FrameNames) string { return f.Command },
	sigBrake:        func(f FrameNames) string { return f.Command },
	sigSteer:        func(f FrameNames) string { return f.Command },
}

// frameCodec translates between CAN frames and core inputs/outputs.
type frameCodec struct {
	cmap   *utils.CANMap
	frames FrameNames
}

func newFrameCodec(cmap *utils.CANMap, frames FrameNames) (*frameCodec, error) {
	for sig, frameOf := range requiredSignals {
		fd, err := cmap.FrameByName(frameOf(frames))
		if err != nil {
			return nil, err
		}
		if !fd.HasSignal(sig) {
			return nil, errors.Errorf("frame %s lacks signal %s", fd.Name, sig)
		}
	}
	if frames.LaneStatus != "" {
		if _, err := cmap.FrameByName(frames.LaneStatus); err != nil {
			return nil, err
		}
	}
	return &frameCodec{cmap: cmap, frames: frames}, nil
}

// decode returns the input event carried by frame, or nil for frames the
// core does not consume.
func (c *frameCodec) decode(frame can.Frame) (inputs.Event, error) {
	if _, known := c.cmap.ByID[frame.ID]; !known {
		return nil, nil
	}
	fd, v, err := c.cmap.DecodeFrame(frame)
	if err != nil {
		return nil, err
	}

	switch fd.Name {
	case c.frames.VehicleState:
		return inputs.VelocityUpdate{Linear: v[sigVehicleSpeed], Angular: v[sigYawRate]}, nil
	case c.frames.Pose:
		return inputs.PoseUpdate{Pose: planner.Pose{X: v[sigPosX], Y: v[sigPosY], Yaw: v[sigYaw]}}, nil
	case c.frames.DBWState:
		return inputs.EnableUpdate{Enabled: v[sigDBWEnabled] >= 0.5}, nil
	case c.frames.StopLine:
		return inputs.StopLineUpdate{Index: int(math.Round(v[sigStopLine]))}, nil
	case c.frames.TwistCmd:
		return inputs.TwistUpdate{Linear: v[sigTwistLinear], Angular: v[sigTwistAngular]}, nil
	}
	return nil, nil
}

func (c *frameCodec) encodeCommand(cmd control.ActuationCommand) (can.Frame, error) {
	return c.cmap.EncodeFrame(c.frames.Command, map[string]float64{
		sigThrottle: cmd.Throttle,
		sigBrake:    cmd.BrakeNm,
		sigSteer:    cmd.SteerRad,
	})
}

func (c *frameCodec) encodeLane(lane planner.Lane) (can.Frame, bool, error) {
	if c.frames.LaneStatus == "" {
		return can.Frame{}, false, nil
	}
	target := 0.0
	if len(lane.Waypoints) > 0 {
		target = lane.Waypoints[0].Velocity
	}
	f, err := c.cmap.EncodeFrame(c.frames.LaneStatus, map[string]float64{
		sigClosestWp: float64(lane.ClosestIdx),
		sigStopIdx:   float64(lane.StopIdx),
		sigTargetVel: target,
	})
	return f, err == nil, err
}
