package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"coursechat/internal/app"
	"coursechat/internal/config"
)

// version is stamped by the build; "dev" outside release builds.
var version = "dev"

var opts struct {
	ConfigFile string
	Listen     string
	LogLevel   string
	LogPretty  bool
}

func main() {
	cliApp := &cli.App{
		Name:    "coursechat",
		Usage:   "real-time chat service for course rooms",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a JSON config file",
				EnvVars:     []string{"COURSECHAT_CONFIG_FILE"},
				Destination: &opts.ConfigFile,
			},
			&cli.StringFlag{
				Name:        "listen",
				Usage:       "listen address host:port, overrides the config",
				EnvVars:     []string{"COURSECHAT_LISTEN"},
				Destination: &opts.Listen,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level: trace, debug, info, warn, error",
				EnvVars:     []string{"COURSECHAT_LOG_LEVEL"},
				Destination: &opts.LogLevel,
			},
			&cli.BoolFlag{
				Name:        "log-pretty",
				Usage:       "human-readable console logs instead of JSON",
				EnvVars:     []string{"COURSECHAT_LOG_PRETTY"},
				Destination: &opts.LogPretty,
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadWithPrecedence(opts.ConfigFile)
	if err != nil {
		return err
	}

	if opts.Listen != "" {
		host, port, err := parseListen(opts.Listen)
		if err != nil {
			return err
		}
		cfg.HTTP.Host = host
		cfg.HTTP.Port = port
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = opts.LogLevel
	}
	if c.IsSet("log-pretty") {
		cfg.Log.Pretty = opts.LogPretty
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	appErrCh := make(chan error, 1)
	go func() {
		if err := application.Start(ctx); err != nil {
			appErrCh <- err
		}
	}()

	select {
	case err := <-appErrCh:
		return fmt.Errorf("application error: %w", err)
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("signal received, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := application.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	}
}

// parseListen splits a host:port override. The host may be empty in the
// input ("":8080") and defaults to all interfaces.
func parseListen(listen string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid listen port %q", portStr)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}

func buildLogger(cfg *config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "coursechat").
		Str("version", version).
		Logger()
	return logger, nil
}
