package control

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// VehicleParams holds the physical description of the drive-by-wire vehicle.
type VehicleParams struct {
	VehicleMassKg float64 `json:"vehicle_mass"`
	FuelCapacity  float64 `json:"fuel_capacity"`
	BrakeDeadband float64 `json:"brake_deadband"`
	DecelLimit    float64 `json:"decel_limit"` // m/s^2, negative
	AccelLimit    float64 `json:"accel_limit"` // m/s^2, positive
	WheelRadiusM  float64 `json:"wheel_radius"`
	WheelBaseM    float64 `json:"wheel_base"`
	SteerRatio    float64 `json:"steer_ratio"`
	MaxLatAccel   float64 `json:"max_lat_accel"`
	MaxSteerAngle float64 `json:"max_steer_angle"` // rad at the steering wheel
}

// PIDConfig holds the throttle PID gains and output bounds.
type PIDConfig struct {
	Kp        float64 `json:"kp"`
	Ki        float64 `json:"ki"`
	Kd        float64 `json:"kd"`
	MinOutput float64 `json:"throttle_min"`
	MaxOutput float64 `json:"throttle_max"`
}

// LowPassConfig parameterises the velocity measurement filter.
type LowPassConfig struct {
	Tau float64 `json:"tau"` // time constant, s
	Ts  float64 `json:"ts"`  // nominal sample interval, s
}

// TwistConfig is everything the actuation arbiter needs.
type TwistConfig struct {
	Vehicle VehicleParams `json:"vehicle"`
	PID     PIDConfig     `json:"pid"`
	LowPass LowPassConfig `json:"low_pass"`

	MinSpeedMPS     float64 `json:"min_speed"`     // below this the steering law limits yaw rate at this speed
	HoldTorqueNm    float64 `json:"hold_torque"`   // brake torque that keeps a stopped vehicle in place
	StopVelocityMPS float64 `json:"stop_velocity"` // filtered speed under which a zero target means "hold"
}

// DefaultTwistConfig returns the tuning the controller ships with.
func DefaultTwistConfig() TwistConfig {
	return TwistConfig{
		Vehicle: VehicleParams{
			VehicleMassKg: 1736.35,
			FuelCapacity:  13.5,
			BrakeDeadband: 0.1,
			DecelLimit:    -5.0,
			AccelLimit:    1.0,
			WheelRadiusM:  0.2413,
			WheelBaseM:    2.8498,
			SteerRatio:    14.8,
			MaxLatAccel:   3.0,
			MaxSteerAngle: 8.0,
		},
		PID: PIDConfig{
			Kp:        0.3,
			Ki:        0.1,
			Kd:        0.0,
			MinOutput: 0.0,
			MaxOutput: 0.2,
		},
		LowPass: LowPassConfig{
			Tau: 0.5,
			Ts:  0.02,
		},
		MinSpeedMPS:     0.1,
		HoldTorqueNm:    400,
		StopVelocityMPS: 0.1,
	}
}

// Validate reports every out-of-range field at once.
func (c TwistConfig) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, errors.Errorf(format, args...))
		}
	}

	v := c.Vehicle
	check(v.VehicleMassKg > 0, "vehicle_mass must be positive, got %g", v.VehicleMassKg)
	check(v.FuelCapacity >= 0, "fuel_capacity must not be negative, got %g", v.FuelCapacity)
	check(v.BrakeDeadband >= 0, "brake_deadband must not be negative, got %g", v.BrakeDeadband)
	check(v.DecelLimit < 0, "decel_limit must be negative, got %g", v.DecelLimit)
	check(v.AccelLimit > 0, "accel_limit must be positive, got %g", v.AccelLimit)
	check(v.WheelRadiusM > 0, "wheel_radius must be positive, got %g", v.WheelRadiusM)
	check(v.WheelBaseM > 0, "wheel_base must be positive, got %g", v.WheelBaseM)
	check(v.SteerRatio > 0, "steer_ratio must be positive, got %g", v.SteerRatio)
	check(v.MaxLatAccel > 0, "max_lat_accel must be positive, got %g", v.MaxLatAccel)
	check(v.MaxSteerAngle > 0, "max_steer_angle must be positive, got %g", v.MaxSteerAngle)

	check(c.PID.MinOutput <= c.PID.MaxOutput, "throttle_min %g exceeds throttle_max %g", c.PID.MinOutput, c.PID.MaxOutput)
	check(c.LowPass.Tau >= 0, "tau must not be negative, got %g", c.LowPass.Tau)
	check(c.LowPass.Ts > 0, "ts must be positive, got %g", c.LowPass.Ts)

	check(c.MinSpeedMPS > 0, "min_speed must be positive, got %g", c.MinSpeedMPS)
	check(c.HoldTorqueNm >= 0, "hold_torque must not be negative, got %g", c.HoldTorqueNm)
	check(c.StopVelocityMPS >= 0, "stop_velocity must not be negative, got %g", c.StopVelocityMPS)
	return err
}
