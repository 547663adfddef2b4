package inputs

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	planner "dbw-waypoint-core/closed_loop/waypoint_planner"
	"dbw-waypoint-core/utils"
)

// Event is one update from the messaging layer.
type Event interface {
	apply(s *State)
}

type PoseUpdate struct{ Pose planner.Pose }

type RouteLoad struct{ Waypoints []planner.Waypoint }

// StopLineUpdate carries a route index or planner.NoStopLine.
type StopLineUpdate struct{ Index int }

type EnableUpdate struct{ Enabled bool }

type VelocityUpdate struct {
	Linear  float64 // m/s
	Angular float64 // rad/s
}

// TwistUpdate is a commanded target twist.
type TwistUpdate struct {
	Linear  float64
	Angular float64
}

// Velocity is the measured vehicle speed with its arrival time.
type Velocity struct {
	Linear   float64
	Angular  float64
	Received time.Time
}

// Twist is a target linear/angular velocity pair.
type Twist struct {
	Linear  float64
	Angular float64
}

// State is the set of input cells shared between the messaging goroutines
// and the planner and control loops.
type State struct {
	clk clock.Clock

	Pose     Cell[planner.Pose]
	Route    Cell[[]planner.Waypoint]
	StopLine Cell[int]
	Velocity Cell[Velocity]
	Twist    Cell[Twist]

	enabled atomic.Bool
}

func NewState(clk clock.Clock) *State {
	s := &State{clk: clk}
	s.StopLine.Store(planner.NoStopLine)
	return s
}

func (s *State) Enabled() bool {
	return s.enabled.Load()
}

// Apply writes one event into its cell.
func (s *State) Apply(ev Event) {
	ev.apply(s)
}

func (e PoseUpdate) apply(s *State) {
	if e.Pose.Stamp.IsZero() {
		e.Pose.Stamp = s.clk.Now()
	}
	s.Pose.Store(e.Pose)
}

func (e RouteLoad) apply(s *State) {
	s.Route.Store(append([]planner.Waypoint(nil), e.Waypoints...))
}

func (e StopLineUpdate) apply(s *State) {
	if e.Index < 0 {
		e.Index = planner.NoStopLine
	}
	s.StopLine.Store(e.Index)
}

func (e EnableUpdate) apply(s *State) {
	s.enabled.Store(e.Enabled)
}

func (e VelocityUpdate) apply(s *State) {
	s.Velocity.Store(Velocity{Linear: e.Linear, Angular: e.Angular, Received: s.clk.Now()})
}

func (e TwistUpdate) apply(s *State) {
	s.Twist.Store(Twist{Linear: e.Linear, Angular: e.Angular})
}

// Mailbox drains events into State until ctx ends or events closes.
type Mailbox struct {
	state *State
	log   *utils.Logger
}

func NewMailbox(state *State, log *utils.Logger) *Mailbox {
	return &Mailbox{state: state, log: log}
}

func (m *Mailbox) Run(ctx context.Context, events <-chan Event) error {
	m.log.Debug("mailbox started")
	defer m.log.Debug("mailbox stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.state.Apply(ev)
			m.log.Trace("input %T applied", ev)
		}
	}
}
