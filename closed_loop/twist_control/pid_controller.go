package control

// PIDController is the throttle controller. Its integral is rolled back on
// any step where the output saturates, so it cannot wind up while the
// throttle sits at a bound.
type PIDController struct {
	cfg PIDConfig

	// State
	integral  float64
	prevError float64
}

// NewPIDController creates a new PID controller with given configuration
func NewPIDController(cfg PIDConfig) *PIDController {
	return &PIDController{cfg: cfg}
}

// Reset clears the integral and derivative memory.
func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
}

// Step advances the controller by dt seconds with the given velocity error
// and returns the clamped throttle. A non-positive dt contributes neither
// integral nor derivative action.
func (pid *PIDController) Step(err, dt float64) float64 {
	integral := pid.integral
	var derivative float64
	if dt > 0 {
		integral += err * dt
		derivative = (err - pid.prevError) / dt
	}

	out := pid.cfg.Kp*err + pid.cfg.Ki*integral + pid.cfg.Kd*derivative

	switch {
	case out > pid.cfg.MaxOutput:
		out = pid.cfg.MaxOutput
	case out < pid.cfg.MinOutput:
		out = pid.cfg.MinOutput
	default:
		pid.integral = integral
	}

	pid.prevError = err
	return out
}

// GetDiagnostics returns current PID state for logging/debugging
func (pid *PIDController) GetDiagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Error:    pid.prevError,
		Integral: pid.integral,
		P:        pid.cfg.Kp * pid.prevError,
		I:        pid.cfg.Ki * pid.integral,
	}
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Error    float64
	Integral float64
	P        float64
	I        float64
}

// GetIntegral returns the current integral term value
func (pid *PIDController) GetIntegral() float64 {
	return pid.integral
}
