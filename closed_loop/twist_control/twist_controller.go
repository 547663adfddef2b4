package control

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"dbw-waypoint-core/utils"
)

// Mode is the drive-by-wire authority state.
type Mode int

const (
	Disabled Mode = iota
	Enabled
)

func (m Mode) String() string {
	if m == Enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// TwistController turns a commanded twist and the measured speed into
// throttle, brake and steering. It owns all per-tick persistent state and
// must be driven from a single goroutine.
type TwistController struct {
	cfg TwistConfig
	clk clock.Clock
	log *utils.Logger

	velLPF   *LowPassFilter
	yaw      *YawController
	throttle *PIDController

	lastTime time.Time
	mode     Mode
	lastErr  float64
}

func NewTwistController(cfg TwistConfig, clk clock.Clock, log *utils.Logger) (*TwistController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TwistController{
		cfg:      cfg,
		clk:      clk,
		log:      log,
		velLPF:   NewLowPassFilter(cfg.LowPass),
		yaw:      NewYawController(cfg.Vehicle, cfg.MinSpeedMPS),
		throttle: NewPIDController(cfg.PID),
		lastTime: clk.Now(),
	}, nil
}

// Control runs one tick. With dbwEnabled false the controller resets and
// returns the neutral command.
func (c *TwistController) Control(linearVel, angularVel, currentVel float64, dbwEnabled bool) ActuationCommand {
	now := c.clk.Now()
	sampleTime := now.Sub(c.lastTime).Seconds()
	c.lastTime = now

	if !dbwEnabled {
		if c.mode == Enabled {
			c.log.Info("DBW disabled; resetting throttle controller")
		}
		c.mode = Disabled
		c.throttle.Reset()
		c.velLPF.Reset()
		c.lastErr = 0
		return ActuationCommand{}
	}
	if c.mode == Disabled {
		c.log.Info("DBW enabled")
		c.mode = Enabled
	}

	currentVel = c.velLPF.Filt(currentVel)

	steer := c.yaw.Steering(linearVel, angularVel, currentVel)

	velErr := linearVel - currentVel
	c.lastErr = velErr
	throttle := c.throttle.Step(velErr, sampleTime)

	cmd := ActuationCommand{Throttle: throttle, SteerRad: steer}

	switch {
	case linearVel == 0 && currentVel < c.cfg.StopVelocityMPS:
		cmd.Throttle = 0
		cmd.BrakeNm = c.cfg.HoldTorqueNm
	case throttle < c.cfg.Vehicle.BrakeDeadband && velErr < 0:
		decel := math.Max(velErr, c.cfg.Vehicle.DecelLimit)
		cmd.Throttle = 0
		cmd.BrakeNm = math.Abs(decel) * c.cfg.Vehicle.VehicleMassKg * c.cfg.Vehicle.WheelRadiusM
	}

	c.log.Trace("control dt=%.4f v_cmd=%.3f w_cmd=%.3f v=%.3f err=%.3f %s throttle=%.3f brake=%.1f steer=%.4f",
		sampleTime, linearVel, angularVel, currentVel, velErr, GetControlModeStr(cmd), cmd.Throttle, cmd.BrakeNm, cmd.SteerRad)
	return cmd
}

func (c *TwistController) Mode() Mode {
	return c.mode
}

// Diagnostics is a snapshot of controller state for debug logging.
type Diagnostics struct {
	Mode             Mode
	FilteredVelocity float64
	VelocityError    float64
	PID              PIDDiagnostics
}

func (c *TwistController) Diagnostics() Diagnostics {
	return Diagnostics{
		Mode:             c.mode,
		FilteredVelocity: c.velLPF.Get(),
		VelocityError:    c.lastErr,
		PID:              c.throttle.GetDiagnostics(),
	}
}
