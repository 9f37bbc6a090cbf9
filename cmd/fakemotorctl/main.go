// Package main is a command line client for an emulated motor control board.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/fakemotor/components/controlboard"
	"go.viam.com/fakemotor/config"
	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/nameservice"
)

const (
	flagConfig        = "config"
	flagDebug         = "debug"
	flagRemote        = "remote"
	flagLocal         = "local"
	flagServerAddress = "server-address"
	flagAxis          = "axis"
	flagSpeed         = "speed"
	flagAcceleration  = "acceleration"
	flagInterval      = "interval"
)

var logger = logging.NewLogger("fakemotorctl")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	axisFlag := &cli.IntFlag{Name: flagAxis, Aliases: []string{"a"}, Usage: "axis index", Required: true}
	app := &cli.App{
		Name:            "fakemotorctl",
		Usage:           "talk to an emulated motor control board",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagRemote,
				Usage: "base `NAME` of the server's endpoints",
			},
			&cli.StringFlag{
				Name:  flagLocal,
				Usage: "base `NAME` of this client's endpoints",
			},
			&cli.StringFlag{
				Name:  flagServerAddress,
				Usage: "`HOST:PORT` of the server, registered under all of its endpoint names",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "axes",
				Usage:  "print the number of axes",
				Action: withClient(axesAction),
			},
			{
				Name:   "limits",
				Usage:  "print the limits of an axis",
				Flags:  []cli.Flag{axisFlag},
				Action: withClient(limitsAction),
			},
			{
				Name:  "encoders",
				Usage: "print the positions of all axes",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: flagInterval, Usage: "keep printing every `DURATION` until interrupted"},
				},
				Action: withClient(encodersAction),
			},
			{
				Name:  "move",
				Usage: "set the velocity of an axis",
				Flags: []cli.Flag{
					axisFlag,
					&cli.Float64Flag{Name: flagSpeed, Usage: "velocity in units per second", Required: true},
				},
				Action: withClient(moveAction),
			},
			{
				Name:  "set-ref-accel",
				Usage: "set the reference acceleration of an axis",
				Flags: []cli.Flag{
					axisFlag,
					&cli.Float64Flag{Name: flagAcceleration, Usage: "units per second squared", Required: true},
				},
				Action: withClient(refAccelAction),
			},
			{
				Name:   "stop",
				Usage:  "stop an axis",
				Flags:  []cli.Flag{axisFlag},
				Action: withClient(stopAction),
			},
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}

// withClient opens a client for the duration of one command.
func withClient(action func(*cli.Context, *controlboard.Client) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		cfg := &config.Config{}
		if path := c.String(flagConfig); path != "" {
			if cfg, err = config.Read(path); err != nil {
				return err
			}
		}
		if c.Bool(flagDebug) {
			logging.SetDefaultLevel(logging.DEBUG)
		}
		closeLog, err := cfg.ApplyLogging(logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, closeLog())
		}()

		boardCfg, err := config.TransformAttributeMap[controlboard.ClientConfig](cfg.Client)
		if err != nil {
			return errors.Wrap(err, "client")
		}
		if c.IsSet(flagRemote) {
			boardCfg.Remote = c.String(flagRemote)
		}
		if c.IsSet(flagLocal) {
			boardCfg.Local = c.String(flagLocal)
		}

		names, err := nameservice.NewDirectory(cfg.Names...)
		if err != nil {
			return err
		}
		if addr := c.String(flagServerAddress); addr != "" {
			remote := boardCfg.Remote
			if remote == "" {
				remote = controlboard.DefaultServerName
			}
			state, command, rpcName := controlboard.ServerEndpoints(remote)
			for _, name := range []string{state, command, rpcName} {
				if err := names.Register(name, addr); err != nil {
					return err
				}
			}
		}

		client := controlboard.NewClient(logger.Sublogger("controlboard"), names)
		if err := client.Open(c.Context, boardCfg); err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, client.Close(context.Background()))
		}()
		return action(c, client)
	}
}

func axesAction(c *cli.Context, client *controlboard.Client) error {
	axes, err := client.Axes(c.Context)
	if err != nil {
		return err
	}
	printf(c, "%d\n", axes)
	return nil
}

func limitsAction(c *cli.Context, client *controlboard.Client) error {
	lim, err := client.Limits(c.Context, c.Int(flagAxis))
	if err != nil {
		return err
	}
	printf(c, "[%g, %g]\n", lim.Min, lim.Max)
	return nil
}

func encodersAction(c *cli.Context, client *controlboard.Client) error {
	interval := c.Duration(flagInterval)
	for {
		positions, err := readEncoders(c.Context, client)
		if err != nil {
			return err
		}
		printf(c, "%v\n", positions)
		if interval <= 0 || !goutils.SelectContextOrWait(c.Context, interval) {
			return nil
		}
	}
}

// readEncoders waits for the first telemetry frame after the client connected.
func readEncoders(ctx context.Context, client *controlboard.Client) ([]float64, error) {
	for {
		positions, err := client.Encoders(ctx)
		if !errors.Is(err, controlboard.ErrNoTelemetry) {
			return positions, err
		}
		if !goutils.SelectContextOrWait(ctx, 10*time.Millisecond) {
			return nil, ctx.Err()
		}
	}
}

func moveAction(c *cli.Context, client *controlboard.Client) error {
	// the queued command is flushed when withClient closes the client
	return client.VelocityMove(c.Context, c.Int(flagAxis), c.Float64(flagSpeed))
}

func refAccelAction(c *cli.Context, client *controlboard.Client) error {
	return client.SetRefAcceleration(c.Context, c.Int(flagAxis), c.Float64(flagAcceleration))
}

func stopAction(c *cli.Context, client *controlboard.Client) error {
	return client.Stop(c.Context, c.Int(flagAxis))
}

func printf(c *cli.Context, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(c.App.Writer, format, a...)
}
