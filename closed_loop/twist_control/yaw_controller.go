package control

import "math"

// targetVelocityEpsilon is how close to zero a target linear velocity may get
// before the steering law refuses to divide by it.
const targetVelocityEpsilon = 1e-6

// YawController maps a requested yaw rate to a steering wheel angle using
// the kinematic bicycle model.
type YawController struct {
	wheelBase     float64
	steerRatio    float64
	minSpeed      float64
	maxLatAccel   float64
	maxSteerAngle float64
}

func NewYawController(v VehicleParams, minSpeed float64) *YawController {
	return &YawController{
		wheelBase:     v.WheelBaseM,
		steerRatio:    v.SteerRatio,
		minSpeed:      minSpeed,
		maxLatAccel:   v.MaxLatAccel,
		maxSteerAngle: v.MaxSteerAngle,
	}
}

func (y *YawController) angle(radius float64) float64 {
	a := math.Atan(y.wheelBase/radius) * y.steerRatio
	return ClampFloat(a, -y.maxSteerAngle, y.maxSteerAngle)
}

// Steering returns the steering wheel angle (rad) for the commanded twist at
// the current forward speed.
func (y *YawController) Steering(linearVel, angularVel, currentVel float64) float64 {
	yawRate := 0.0
	if math.Abs(linearVel) > targetVelocityEpsilon {
		yawRate = angularVel * currentVel / linearVel
	}

	speed := math.Max(math.Abs(currentVel), y.minSpeed)
	maxYawRate := y.maxLatAccel / speed
	yawRate = ClampFloat(yawRate, -maxYawRate, maxYawRate)

	if yawRate == 0 {
		return 0
	}
	return y.angle(math.Max(currentVel, y.minSpeed) / yawRate)
}
