package control

// ActuationCommand is the throttle/brake/steer triple sent to the vehicle
// every control tick.
type ActuationCommand struct {
	Throttle float64 // [throttle_min, throttle_max]
	BrakeNm  float64 // wheel torque, >= 0
	SteerRad float64 // steering wheel angle
}

// ClampFloat clamps value between min and max
func ClampFloat(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// GetControlModeStr returns a string describing what the command does
func GetControlModeStr(cmd ActuationCommand) string {
	switch {
	case cmd.Throttle > 0:
		return "[ACCEL]"
	case cmd.BrakeNm > 0:
		return "[BRAKE]"
	}
	return "[COAST]"
}
