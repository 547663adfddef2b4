package inputs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planner "dbw-waypoint-core/closed_loop/waypoint_planner"
	"dbw-waypoint-core/utils"
)

func TestCellLastValueWins(t *testing.T) {
	var c Cell[planner.Pose]

	_, ok := c.Load()
	assert.False(t, ok)

	c.Store(planner.Pose{X: 1})
	c.Store(planner.Pose{X: 2})

	v, seq, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 2.0, v.X)
	assert.Equal(t, uint64(2), seq)
}

func TestCellConcurrentReadersSeeWholeValues(t *testing.T) {
	var c Cell[planner.Pose]
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				f := float64(w*1000 + i)
				c.Store(planner.Pose{X: f, Y: f, Z: f})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if p, ok := c.Load(); ok {
					assert.Equal(t, p.X, p.Y)
					assert.Equal(t, p.X, p.Z)
				}
			}
		}()
	}
	wg.Wait()

	_, seq, _ := c.Snapshot()
	assert.Equal(t, uint64(4000), seq)
}

func TestStateDefaults(t *testing.T) {
	s := NewState(clock.NewMock())

	stop, ok := s.StopLine.Load()
	assert.True(t, ok)
	assert.Equal(t, planner.NoStopLine, stop)
	assert.False(t, s.Enabled())

	_, ok = s.Pose.Load()
	assert.False(t, ok)
	_, ok = s.Route.Load()
	assert.False(t, ok)
}

func TestApplyEvents(t *testing.T) {
	mock := clock.NewMock()
	mock.Add(time.Hour)
	s := NewState(mock)

	route := []planner.Waypoint{{X: 1}, {X: 2}}
	s.Apply(RouteLoad{Waypoints: route})
	route[0].X = 100
	got, _ := s.Route.Load()
	assert.Equal(t, 1.0, got[0].X)

	s.Apply(StopLineUpdate{Index: 42})
	stop, _ := s.StopLine.Load()
	assert.Equal(t, 42, stop)
	s.Apply(StopLineUpdate{Index: -7})
	stop, _ = s.StopLine.Load()
	assert.Equal(t, planner.NoStopLine, stop)

	s.Apply(EnableUpdate{Enabled: true})
	assert.True(t, s.Enabled())

	s.Apply(PoseUpdate{Pose: planner.Pose{X: 3}})
	pose, _ := s.Pose.Load()
	assert.Equal(t, mock.Now(), pose.Stamp)

	s.Apply(VelocityUpdate{Linear: 4.5})
	vel, _ := s.Velocity.Load()
	assert.Equal(t, 4.5, vel.Linear)
	assert.Equal(t, mock.Now(), vel.Received)

	s.Apply(TwistUpdate{Linear: 6, Angular: 0.1})
	tw, _ := s.Twist.Load()
	assert.Equal(t, Twist{Linear: 6, Angular: 0.1}, tw)
}

func TestMailboxDrainsUntilClosed(t *testing.T) {
	s := NewState(clock.NewMock())
	m := NewMailbox(s, utils.NewTestLogger(t))
	events := make(chan Event, 4)

	events <- EnableUpdate{Enabled: true}
	events <- StopLineUpdate{Index: 9}
	close(events)

	require.NoError(t, m.Run(context.Background(), events))
	assert.True(t, s.Enabled())
	stop, _ := s.StopLine.Load()
	assert.Equal(t, 9, stop)
}

func TestMailboxStopsOnCancel(t *testing.T) {
	m := NewMailbox(NewState(clock.NewMock()), utils.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx, make(chan Event))
	assert.ErrorIs(t, err, context.Canceled)
}
