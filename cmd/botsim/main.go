package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/metrics"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/robot/sim"
	"github.com/nomis52/botcore/status"
)

type Args struct {
	Seed      int64
	MaxTicks  int
	FailDocks int
	PushURL   string
	LogLevel  string
}

// step is one scripted request and a label to print with its outcome.
type step struct {
	label string
	req   controller.Request
}

func scenario() []step {
	return []step{
		{"pick up block A", controller.Request{Routine: "pickup", Object: sim.DemoBlockA}},
		{"stack it on block B", controller.Request{Routine: "place_on", Object: sim.DemoBlockB}},
		{"look at block B", controller.Request{Routine: "face_object", Object: sim.DemoBlockB}},
		{"rest", controller.Request{Routine: "wait", Object: robot.NoObject, Duration: controller.Duration(time.Second)}},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	logger, closer, err := logging.New(logging.Config{Level: args.LogLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closer.Close()

	s := sim.New(args.Seed)
	s.Populate()
	s.Robot.FailDocks(args.FailDocks)

	board := status.NewBoard(logger, s.Clock)
	observers := []queue.Observer{board}

	var push *metrics.PushRegistry
	if args.PushURL != "" {
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:    args.PushURL,
			Prefix: "botcore",
			Job:    "botsim",
			Logger: logger,
		})
		rec, err := metrics.NewActionRecorder(push, s.Clock)
		if err != nil {
			return err
		}
		observers = append(observers, rec)
	}

	opts := []controller.Option{controller.WithLogger(logging.Component(logger, "controller"))}
	for _, o := range observers {
		opts = append(opts, controller.WithObserver(o))
	}
	ctrl := controller.New(s.Env(logging.Component(logger, "action")), opts...)

	steps := scenario()
	ids := make(map[string]string, len(steps))
	for _, st := range steps {
		id, err := ctrl.Submit(st.req)
		if err != nil {
			return fmt.Errorf("%s: %w", st.label, err)
		}
		ids[id] = st.label
	}

	start := s.Clock.Now()
	ticks := 0
	for ; ticks < args.MaxTicks; ticks++ {
		ctrl.Tick()
		if len(ctrl.History()) == len(steps) {
			break
		}
		s.Step(sim.DefaultStep)
	}
	ctrl.Shutdown()

	records := ctrl.History()
	failed := 0
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Printf("%-22s %-16s %-10s attempts=%d type=%s\n", ids[r.RequestID], r.Routine, r.Result, r.Attempts, r.Type)
		if !r.Succeeded() {
			failed++
		}
	}
	totals := board.Totals()
	fmt.Printf("\n%d ticks, %s simulated, robot carrying %v\n", ticks, s.Clock.Now().Sub(start), s.Robot.State().CarriedObject)
	fmt.Printf("started=%d succeeded=%d failed=%d\n", totals.Started, totals.Succeeded, totals.Failed)

	objects, err := s.World.Snapshot()
	if err != nil {
		return err
	}
	fmt.Printf("\nworld:\n")
	for _, o := range objects {
		fmt.Printf("  %-3d %-8s x=%.0f y=%.0f z=%.0f\n", o.ID, o.Type, o.Pose.X, o.Pose.Y, o.Pose.Z)
	}

	if push != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metrics.DefaultTimeout)
		defer cancel()
		if err := push.Flush(ctx); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d steps did not succeed", failed, len(steps))
	}
	return nil
}

func parseArgs() Args {
	seed := flag.Int64("seed", 1, "Seed of the simulated robot's random source")
	maxTicks := flag.Int("max-ticks", 2000, "Give up after this many ticks")
	failDocks := flag.Int("fail-docks", 0, "Make the first n dock attempts fail")
	pushURL := flag.String("push-url", "", "Remote write endpoint for metrics, e.g. http://localhost:8428")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nRuns a pick and place scenario against the simulated robot\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	return Args{
		Seed:      *seed,
		MaxTicks:  *maxTicks,
		FailDocks: *failDocks,
		PushURL:   *pushURL,
		LogLevel:  *logLevel,
	}
}
