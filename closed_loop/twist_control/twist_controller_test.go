package control

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"dbw-waypoint-core/utils"
)

const tick = 20 * time.Millisecond

func newTestController(t *testing.T) (*TwistController, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	c, err := NewTwistController(DefaultTwistConfig(), mock, utils.NewTestLogger(t))
	require.NoError(t, err)
	return c, mock
}

func step(c *TwistController, mock *clock.Mock, linear, angular, current float64, enabled bool) ActuationCommand {
	mock.Add(tick)
	return c.Control(linear, angular, current, enabled)
}

func TestDisabledYieldsNeutralCommand(t *testing.T) {
	c, mock := newTestController(t)

	for i := 0; i < 50; i++ {
		step(c, mock, 2.2, 0.1, 2, true)
	}
	require.NotZero(t, c.Diagnostics().PID.Integral)

	for _, v := range []float64{0, 3.5, 25} {
		cmd := step(c, mock, 10, 0.1, v, false)
		assert.Equal(t, ActuationCommand{}, cmd)
		assert.Equal(t, Disabled, c.Mode())
		assert.Zero(t, c.Diagnostics().PID.Integral)
	}
}

func TestReenableMatchesFreshController(t *testing.T) {
	used, usedClock := newTestController(t)
	for i := 0; i < 100; i++ {
		step(used, usedClock, 8, 0, 1, true)
	}
	step(used, usedClock, 8, 0, 1, false)

	fresh, freshClock := newTestController(t)

	for i := 0; i < 5; i++ {
		a := step(used, usedClock, 6, 0.05, 4, true)
		b := step(fresh, freshClock, 6, 0.05, 4, true)
		assert.InDelta(t, b.Throttle, a.Throttle, 1e-12)
		assert.InDelta(t, b.BrakeNm, a.BrakeNm, 1e-9)
		assert.InDelta(t, b.SteerRad, a.SteerRad, 1e-12)
	}
}

func TestHoldTorqueWhenStopped(t *testing.T) {
	c, mock := newTestController(t)

	cmd := step(c, mock, 0, 0, 0.05, true)

	assert.Zero(t, cmd.Throttle)
	assert.Equal(t, DefaultTwistConfig().HoldTorqueNm, cmd.BrakeNm)
}

func TestSteadyStateCruise(t *testing.T) {
	c, mock := newTestController(t)
	cfg := DefaultTwistConfig()

	var cmd ActuationCommand
	for i := 0; i < 20; i++ {
		cmd = step(c, mock, 5, 0, 5, true)
	}

	assert.GreaterOrEqual(t, cmd.Throttle, cfg.PID.MinOutput)
	assert.LessOrEqual(t, cmd.Throttle, cfg.PID.MaxOutput)
	assert.Zero(t, cmd.BrakeNm)
	assert.Zero(t, cmd.SteerRad)
}

func TestBrakeProportionalToDeceleration(t *testing.T) {
	c, mock := newTestController(t)
	v := DefaultTwistConfig().Vehicle

	cmd := step(c, mock, 3, 0, 5, true)

	assert.Zero(t, cmd.Throttle)
	assert.InDelta(t, 2.0*v.VehicleMassKg*v.WheelRadiusM, cmd.BrakeNm, 1e-9)
}

func TestBrakeClampedAtDecelLimit(t *testing.T) {
	c, mock := newTestController(t)
	v := DefaultTwistConfig().Vehicle

	cmd := step(c, mock, 1, 0, 20, true)

	assert.Zero(t, cmd.Throttle)
	assert.InDelta(t, -v.DecelLimit*v.VehicleMassKg*v.WheelRadiusM, cmd.BrakeNm, 1e-9)
}

func TestThrottleAboveDeadbandSuppressesBrake(t *testing.T) {
	cfg := DefaultTwistConfig()
	cfg.PID.MinOutput = 0.15
	mock := clock.NewMock()
	c, err := NewTwistController(cfg, mock, utils.NewNopLogger())
	require.NoError(t, err)

	cmd := step(c, mock, 4.9, 0, 5, true)

	assert.Equal(t, 0.15, cmd.Throttle)
	assert.Zero(t, cmd.BrakeNm)
}

func TestInvalidConfigReportsEveryField(t *testing.T) {
	cfg := DefaultTwistConfig()
	cfg.Vehicle.VehicleMassKg = 0
	cfg.Vehicle.DecelLimit = 1
	cfg.LowPass.Ts = 0

	_, err := NewTwistController(cfg, clock.NewMock(), utils.NewNopLogger())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), "vehicle_mass")
	assert.Contains(t, err.Error(), "decel_limit")
	assert.Contains(t, err.Error(), "ts must be positive")
}
