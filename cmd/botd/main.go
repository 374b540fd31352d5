package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nomis52/botcore/buildinfo"
	"github.com/nomis52/botcore/config"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/metrics"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot/sim"
	"github.com/nomis52/botcore/server"
	"github.com/nomis52/botcore/server/cron"
	"github.com/nomis52/botcore/status"
)

const (
	actionLogsMaxActions = 64
	actionLogsMaxEntries = 200
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
	Validate    bool
	Seed        int64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	if args.ShowVersion {
		fmt.Printf("botd %s\n", buildinfo.Get())
		return nil
	}

	cfg := config.Default()
	if args.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadConfig(args.ConfigPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if args.Validate {
		fmt.Printf("Configuration validation successful: %s\n", args.ConfigPath)
		return nil
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()

	props := buildinfo.Get()
	logger.Info("botd started",
		"version", props.Version,
		"build_time", props.BuildTime,
		"git_commit", props.GitCommit,
		"config_path", args.ConfigPath,
		"seed", args.Seed,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := sim.New(args.Seed)
	s.Populate()

	board := status.NewBoard(logging.Component(logger, "status"), s.Clock)
	logs := logging.NewActionLogs(slog.LevelDebug, actionLogsMaxActions, actionLogsMaxEntries)
	observers := []queue.Observer{board}

	var (
		metricsHandler http.Handler
		push           *metrics.PushRegistry
	)
	switch cfg.Metrics.Mode {
	case config.MetricsModeScrape:
		reg, err := metrics.NewScrapeRegistry(cfg.Metrics.Prefix)
		if err != nil {
			return fmt.Errorf("creating metrics registry: %w", err)
		}
		rec, err := metrics.NewActionRecorder(reg, s.Clock)
		if err != nil {
			return err
		}
		observers = append(observers, rec)
		metricsHandler = reg.Handler()
	case config.MetricsModePush:
		instance := cfg.Metrics.Instance
		if instance == "" {
			if instance, err = os.Hostname(); err != nil {
				return fmt.Errorf("failed to get hostname: %w", err)
			}
		}
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.Metrics.PushURL,
			Prefix:   cfg.Metrics.Prefix,
			Job:      cfg.Metrics.JobName,
			Instance: instance,
			Logger:   logging.Component(logger, "metrics"),
		})
		rec, err := metrics.NewActionRecorder(push, s.Clock)
		if err != nil {
			return err
		}
		observers = append(observers, rec)
	}

	history, err := newHistory(cfg.Controller, logger)
	if err != nil {
		return err
	}

	opts := []controller.Option{
		controller.WithLogger(logging.Component(logger, "controller")),
		controller.WithDockParams(cfg.Docking.DockParams()),
		controller.WithDefaultRetries(cfg.Controller.DefaultRetries),
		controller.WithTickInterval(cfg.Controller.TickInterval),
		controller.WithHistory(history),
		controller.WithActionLogger(logs),
		controller.WithAfterTick(func() { s.Step(cfg.Controller.TickInterval) }),
	}
	for _, o := range observers {
		opts = append(opts, controller.WithObserver(o))
	}
	ctrl := controller.New(s.Env(logging.Component(logger, "action")), opts...)

	srvOpts := []server.Option{
		server.WithLogger(logging.Component(logger, "server")),
		server.WithActionLogs(logs),
		server.WithWorld(s.World),
	}
	if metricsHandler != nil {
		srvOpts = append(srvOpts, server.WithMetrics(metricsHandler))
	}
	if len(cfg.Schedules) > 0 {
		mgr, err := cron.NewManager(cfg.Schedules, ctrl, ctrl.Routines(), logging.Component(logger, "cron"))
		if err != nil {
			return fmt.Errorf("creating schedules: %w", err)
		}
		srvOpts = append(srvOpts, server.WithCron(mgr))
	}
	if cfg.Server.TLSCert != "" {
		srvOpts = append(srvOpts, server.WithTLS(cfg.Server.TLSCert, cfg.Server.TLSKey))
	}
	srv, err := server.New(&cfg, ctrl, board, srvOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if push != nil {
		g.Go(func() error {
			push.Run(ctx, cfg.Metrics.PushInterval)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("botd stopped", "error", err)
	return err
}

func newHistory(cfg config.ControllerConfig, logger *slog.Logger) (controller.HistoryStore, error) {
	if cfg.HistoryFile == "" {
		return controller.NewMemoryStore(cfg.HistorySize), nil
	}
	store, err := controller.NewFileStore(cfg.HistoryFile, cfg.HistorySize, logging.Component(logger, "history"))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}

func parseArgs() Args {
	configPath := flag.String("config", "", "Path to config file")
	configPathShort := flag.String("c", "", "Path to config file (shorthand)")
	showVersion := flag.Bool("version", false, "Show version information")
	versionShort := flag.Bool("v", false, "Show version information (shorthand)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	seed := flag.Int64("seed", 1, "Seed of the simulated robot's random source")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRobot action controller with an HTTP API, driving a simulated robot\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --config /etc/botd/config.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --version\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config config.yaml --validate\n", os.Args[0])
	}

	flag.Parse()

	path := *configPath
	if path == "" && *configPathShort != "" {
		path = *configPathShort
	}

	return Args{
		ConfigPath:  path,
		ShowVersion: *showVersion || *versionShort,
		Validate:    *validate,
		Seed:        *seed,
	}
}
