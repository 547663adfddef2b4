package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"dbw-waypoint-core/utils"
)

func main() {
	app := &cli.App{
		Name:  "closed_loop",
		Usage: "drive-by-wire waypoint planner and twist controller over SocketCAN",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "iface", Value: "vcan0", Usage: "SocketCAN interface name"},
			&cli.StringFlag{Name: "map", Value: "config/can/can_map.csv", Usage: "path to can_map.csv"},
			&cli.StringFlag{Name: "vehicle", Aliases: []string{"c"}, Value: "config/vehicle.json", Usage: "vehicle/controller config `FILE`"},
			&cli.StringFlag{Name: "route", Usage: "route CSV (overrides route.path in the config)"},
			&cli.StringFlag{Name: "log", Value: "info", Usage: "trace|debug|info|warn|error|critical"},
			&cli.StringFlag{Name: "log-file", Value: "closed_loop.log", Usage: "log file path"},
			&cli.BoolFlag{Name: "stdout", Value: true, Usage: "also log to stdout"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log, err := utils.NewFileLogger(c.String("log-file"), utils.ParseLevel(c.String("log")), c.Bool("stdout"))
	if err != nil {
		return errors.Wrapf(err, "cannot open %s", c.String("log-file"))
	}
	defer log.Close()

	cfg := RunnerConfig{
		Interface:  c.String("iface"),
		MapPath:    c.String("map"),
		ConfigPath: c.String("vehicle"),
		RoutePath:  c.String("route"),
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("Close: %v", err)
		}
	}()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		return err
	}
	return nil
}
