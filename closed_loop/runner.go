package main

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"dbw-waypoint-core/closed_loop/inputs"
	control "dbw-waypoint-core/closed_loop/twist_control"
	planner "dbw-waypoint-core/closed_loop/waypoint_planner"
	"dbw-waypoint-core/utils"
)

type RunnerConfig struct {
	Interface  string
	MapPath    string
	ConfigPath string
	RoutePath  string // overrides the route path from the config file
}

type Runner struct {
	vcfg  VehicleConfig
	log   *utils.Logger
	clk   clock.Clock
	codec *frameCodec

	writer utils.CANWriter
	reader utils.CANReader

	route    []planner.Waypoint
	events   chan inputs.Event
	state    *inputs.State
	mailbox  *inputs.Mailbox
	planner  *planner.Planner
	follower planner.Follower
	twist    *control.TwistController

	routeSeq   uint64
	cmdsSent   uint64
	lanesBuilt uint64
	stale      bool
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	vcfg, err := LoadVehicleConfig(cfg.ConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "load vehicle config")
	}
	if cfg.RoutePath != "" {
		vcfg.Route.Path = cfg.RoutePath
	}
	if vcfg.Route.Path == "" {
		return nil, errors.New("no route file given")
	}

	cmap, err := utils.LoadCANMap(cfg.MapPath)
	if err != nil {
		return nil, errors.Wrap(err, "load can map")
	}

	route, err := planner.LoadRouteCSV(vcfg.Route.Path, vcfg.Route.DefaultVelocity)
	if err != nil {
		return nil, errors.Wrap(err, "load route")
	}

	writer, err := utils.NewSocketCANWriter(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}

	reader, err := utils.NewSocketCANReader(ctx, cfg.Interface)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}

	r, err := newRunner(vcfg, cmap, route, reader, writer, clock.New(), log)
	if err != nil {
		_ = multierr.Combine(reader.Close(), writer.Close())
		return nil, err
	}
	return r, nil
}

// newRunner wires the core around already opened transports.
func newRunner(
	vcfg VehicleConfig,
	cmap *utils.CANMap,
	route []planner.Waypoint,
	reader utils.CANReader,
	writer utils.CANWriter,
	clk clock.Clock,
	log *utils.Logger,
) (*Runner, error) {
	log = log.With("run_id", uuid.NewString())

	codec, err := newFrameCodec(cmap, vcfg.Frames)
	if err != nil {
		return nil, errors.Wrap(err, "can frames")
	}

	p, err := planner.NewPlanner(vcfg.Planner, log)
	if err != nil {
		return nil, errors.Wrap(err, "planner")
	}

	twist, err := control.NewTwistController(vcfg.Control, clk, log)
	if err != nil {
		return nil, errors.Wrap(err, "twist controller")
	}

	state := inputs.NewState(clk)
	r := &Runner{
		vcfg:     vcfg,
		log:      log,
		clk:      clk,
		codec:    codec,
		writer:   writer,
		reader:   reader,
		route:    route,
		events:   make(chan inputs.Event, 256),
		state:    state,
		mailbox:  inputs.NewMailbox(state, log),
		planner:  p,
		follower: planner.NewFollower(vcfg.Planner),
		twist:    twist,
	}

	v := vcfg.Control.Vehicle
	log.Info("Vehicle: mass=%.1fkg fuel=%.1f wheel_radius=%.4fm wheel_base=%.4fm steer_ratio=%.1f decel_limit=%.1f accel_limit=%.1f",
		v.VehicleMassKg, v.FuelCapacity, v.WheelRadiusM, v.WheelBaseM, v.SteerRatio, v.DecelLimit, v.AccelLimit)
	log.Info("PID: Kp=%.3f Ki=%.3f Kd=%.3f throttle=[%.2f, %.2f]; LPF tau=%.2f ts=%.3f",
		vcfg.Control.PID.Kp, vcfg.Control.PID.Ki, vcfg.Control.PID.Kd,
		vcfg.Control.PID.MinOutput, vcfg.Control.PID.MaxOutput,
		vcfg.Control.LowPass.Tau, vcfg.Control.LowPass.Ts)
	return r, nil
}

func (r *Runner) Close() error {
	var err error
	if r.reader != nil {
		err = multierr.Append(err, r.reader.Close())
	}
	if r.writer != nil {
		err = multierr.Append(err, r.writer.Close())
	}
	return err
}

// Run drives the receive, planner and control loops until ctx is cancelled,
// a loop fails, or the configured duration elapses.
func (r *Runner) Run(ctx context.Context) error {
	if d := r.vcfg.Loop.DurationS; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = r.clk.WithTimeout(ctx, time.Duration(d*float64(time.Second)))
		defer cancel()
	}

	r.log.Info("Starting: control=%.0fHz planner=%.0fHz route=%d waypoints twist_source=%s config=%q",
		r.vcfg.Loop.ControlHz, r.vcfg.Loop.PlannerHz, len(r.route), r.vcfg.Loop.TwistSource, r.vcfg.Meta.Name)

	// The route is delivered like any other input.
	r.events <- inputs.RouteLoad{Waypoints: r.route}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.mailbox.Run(gctx, r.events) })
	g.Go(func() error { return r.receiveLoop(gctx) })
	g.Go(func() error { return r.plannerLoop(gctx) })
	g.Go(func() error { return r.controlLoop(gctx) })

	err := g.Wait()
	r.log.Info("Stopped. commands_sent=%d lanes_built=%d", r.cmdsSent, r.lanesBuilt)

	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return nil
	}
	return err
}

func period(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

func (r *Runner) controlLoop(ctx context.Context) error {
	ticker := r.clk.Ticker(period(r.vcfg.Loop.ControlHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.controlTick(ctx); err != nil {
				return err
			}
		}
	}
}

// controlTick publishes one actuation command. While enabled, a tick with no
// velocity feedback or twist target yet is skipped.
func (r *Runner) controlTick(ctx context.Context) error {
	enabled := r.state.Enabled()
	vel, haveVel := r.state.Velocity.Load()
	twist, haveTwist := r.state.Twist.Load()

	if enabled && (!haveVel || !haveTwist) {
		r.log.Trace("control tick skipped: velocity=%v twist=%v", haveVel, haveTwist)
		return nil
	}

	if haveVel {
		age := r.clk.Since(vel.Received)
		timeout := time.Duration(r.vcfg.Loop.FeedbackTimeoutMS) * time.Millisecond
		if age > timeout && !r.stale {
			r.log.Warn("No velocity feedback for %.1f ms - PID may be unreliable", float64(age)/float64(time.Millisecond))
			r.stale = true
		} else if age <= timeout {
			r.stale = false
		}
	}

	cmd := r.twist.Control(twist.Linear, twist.Angular, vel.Linear, enabled)

	frame, err := r.codec.encodeCommand(cmd)
	if err != nil {
		r.log.Error("Encode failed: %v", err)
		return err
	}
	if err := r.writer.WriteFrame(ctx, frame); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Critical("Transmit failed: %v", err)
		return errors.Wrap(err, "transmit command")
	}

	if r.cmdsSent%100 == 0 && r.log.Enabled(utils.DEBUG) {
		d := r.twist.Diagnostics()
		r.log.Debug("DBW %s: v=%.2f err=%.3f throttle=%.3f brake=%.1f steer=%.3f P=%.3f I=%.3f",
			d.Mode, d.FilteredVelocity, d.VelocityError, cmd.Throttle, cmd.BrakeNm, cmd.SteerRad, d.PID.P, d.PID.I)
	}
	r.cmdsSent++
	return nil
}

func (r *Runner) plannerLoop(ctx context.Context) error {
	ticker := r.clk.Ticker(period(r.vcfg.Loop.PlannerHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.plannerTick(ctx); err != nil {
				return err
			}
		}
	}
}

// plannerTick builds one look-ahead lane once both route and pose are known.
func (r *Runner) plannerTick(ctx context.Context) error {
	route, seq, haveRoute := r.state.Route.Snapshot()
	pose, havePose := r.state.Pose.Load()
	if !haveRoute || !havePose {
		r.log.Trace("planner tick skipped: route=%v pose=%v", haveRoute, havePose)
		return nil
	}

	if seq != r.routeSeq {
		if _, err := r.planner.LoadRoute(route); err != nil {
			r.log.Warn("route rejected: %v", err)
		}
		r.routeSeq = seq
	}

	stopLine, _ := r.state.StopLine.Load()
	lane, err := r.planner.LocateAndWindow(pose, stopLine)
	if errors.Is(err, planner.ErrNoRoute) {
		return nil
	}
	if err != nil {
		return err
	}
	r.lanesBuilt++

	if r.vcfg.Loop.TwistSource == twistFromPlanner {
		if linear, angular, ok := r.follower.Twist(pose, lane); ok {
			r.state.Apply(inputs.TwistUpdate{Linear: linear, Angular: angular})
		}
	}

	frame, ok, err := r.codec.encodeLane(lane)
	if err != nil {
		return err
	}
	if ok {
		if err := r.writer.WriteFrame(ctx, frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "transmit lane status")
		}
	}
	return nil
}

// receiveLoop decodes CAN input frames into events for the mailbox.
func (r *Runner) receiveLoop(ctx context.Context) error {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "receive")
		}

		ev, err := r.codec.decode(frame)
		if err != nil {
			r.log.Warn("RX id=0x%X dropped: %v", frame.ID, err)
			continue
		}
		if ev == nil {
			r.log.Trace("RX id=0x%X len=%d data=% X ignored", frame.ID, frame.Length, frame.Data[:frame.Length])
			continue
		}
		if _, isTwist := ev.(inputs.TwistUpdate); isTwist && r.vcfg.Loop.TwistSource != twistFromCAN {
			continue
		}

		select {
		case r.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
