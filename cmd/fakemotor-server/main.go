// Package main runs an emulated motor control board until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/fakemotor/components/controlboard"
	"go.viam.com/fakemotor/config"
	"go.viam.com/fakemotor/logging"
	"go.viam.com/fakemotor/nameservice"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagLocal    = "local"
	flagAddress  = "address"
	flagAxes     = "axes"
	flagPeriodMs = "period-ms"
)

var logger = logging.NewLogger("fakemotor-server")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:  "fakemotor-server",
		Usage: "serve an emulated motor control board",
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
				Name:  flagLocal,
				Usage: "base `NAME` of the server's endpoints",
			},
			&cli.StringFlag{
				Name:  flagAddress,
				Usage: "`HOST:PORT` to listen on",
			},
			&cli.IntFlag{
				Name:  flagAxes,
				Usage: "number of axes",
			},
			&cli.IntFlag{
				Name:  flagPeriodMs,
				Usage: "integration period in milliseconds",
			},
		},
		Action: runServer,
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}

func runServer(c *cli.Context) (err error) {
	cfg := &config.Config{}
	path := c.String(flagConfig)
	if path != "" {
		if cfg, err = config.Read(path); err != nil {
			return err
		}
	}
	if c.Bool(flagDebug) {
		// loggers no pattern names stay at debug across config reloads
		logging.SetDefaultLevel(logging.DEBUG)
	}
	closeLog, err := cfg.ApplyLogging(logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()
	if path != "" {
		// only log levels are reloaded; board settings need a restart
		watcher, err := config.NewWatcher(path, logger, func(newCfg *config.Config) {
			if err := logging.UpdateLoggerConfig(newCfg.Log); err != nil {
				logger.Warnw("failed to apply log levels", "error", err)
			}
		})
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
	}

	boardCfg, err := config.TransformAttributeMap[controlboard.ServerConfig](cfg.Server)
	if err != nil {
		return errors.Wrap(err, "server")
	}
	if c.IsSet(flagLocal) {
		boardCfg.Local = c.String(flagLocal)
	}
	if c.IsSet(flagAddress) {
		boardCfg.Address = c.String(flagAddress)
	}
	if c.IsSet(flagAxes) {
		boardCfg.Axes = c.Int(flagAxes)
		boardCfg.Limits = nil
	}
	if c.IsSet(flagPeriodMs) {
		boardCfg.PeriodMs = c.Int(flagPeriodMs)
	}

	names, err := nameservice.NewDirectory(cfg.Names...)
	if err != nil {
		return err
	}
	server := controlboard.NewServer(logger.Sublogger("controlboard"), names)
	if err := server.Open(c.Context, boardCfg); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, server.Close(context.Background()))
	}()

	addr, err := server.Address()
	if err != nil {
		return err
	}
	logger.Infow("serving", "address", addr, "names", names.Names())

	<-c.Context.Done()
	st, err := server.Status()
	if err != nil {
		return err
	}
	logger.Infow("shutting down",
		"ticks", st.Ticks, "commands_applied", st.CommandsApplied, "requests", st.Requests)
	return nil
}
