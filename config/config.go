package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/botcore/dock"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
)

const (
	// Default controller settings
	defaultTickInterval   = 50 * time.Millisecond
	defaultDefaultRetries = 2
	defaultHistorySize    = 100

	// Default docking settings
	defaultDockSpeed         = dock.DefaultSpeed
	defaultDockAccel         = dock.DefaultAccel
	defaultDockDecel         = dock.DefaultDecel
	defaultAngleToleranceDeg = 10.0

	// Default metrics settings
	defaultMetricsMode         = MetricsModeScrape
	defaultMetricsPrefix       = "botcore"
	defaultJobName             = "botd"
	defaultMetricsPushInterval = 15 * time.Second

	// Default server settings
	defaultListenAddr = ":8080"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stdout"
)

// Metrics modes.
const (
	MetricsModeScrape = "scrape"
	MetricsModePush   = "push"
	MetricsModeOff    = "off"
)

// Config represents the complete application configuration
type Config struct {
	Logging    logging.Config   `yaml:"logging"`
	Controller ControllerConfig `yaml:"controller"`
	Docking    DockingConfig    `yaml:"docking"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Server     ServerConfig     `yaml:"server"`
	Schedules  []Schedule       `yaml:"schedules"`
}

// ControllerConfig tunes the tick loop.
type ControllerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	// DefaultRetries applies to requests that do not set their own.
	DefaultRetries int `yaml:"default_retries"`
	// HistorySize bounds the completion history.
	HistorySize int `yaml:"history_size"`
	// HistoryFile persists the history as JSON. Empty keeps it in memory.
	HistoryFile string `yaml:"history_file"`
}

// DockingConfig holds the defaults for every docking action.
type DockingConfig struct {
	Speed float64 `yaml:"speed"`
	Accel float64 `yaml:"accel"`
	Decel float64 `yaml:"decel"`
	// AngleToleranceDeg is in degrees; 0 disables the distance check.
	AngleToleranceDeg   *float64      `yaml:"angle_tolerance_deg"`
	CheckForObjectOnTop bool          `yaml:"check_for_object_on_top"`
	VerifyDelay         time.Duration `yaml:"verify_delay"`
}

// MetricsConfig selects how metrics leave the process.
type MetricsConfig struct {
	// Mode is scrape, push or off.
	Mode         string        `yaml:"mode"`
	PushURL      string        `yaml:"push_url"`
	Prefix       string        `yaml:"prefix"`
	JobName      string        `yaml:"jobname"`
	Instance     string        `yaml:"instance"`
	PushInterval time.Duration `yaml:"push_interval"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// The listen address, defaults to :8080
	Listen string `yaml:"listen"`
	// TLSCert and TLSKey enable HTTPS. The files are re-read when they
	// change on disk.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// Schedule queues a routine on a cron schedule.
type Schedule struct {
	Name string `yaml:"name"`
	// Cron is a standard five field cron expression.
	Cron    string `yaml:"cron"`
	Routine string `yaml:"routine"`
	// Object is the routine's target, if it needs one.
	Object *robot.ObjectID `yaml:"object"`
	// Position is a queue position name, at_end when empty.
	Position string `yaml:"position"`
	Retries  *int   `yaml:"retries"`
	// When is an optional guard expression evaluated against the robot
	// state at fire time. The routine is skipped unless it is true.
	When string `yaml:"when"`
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Controller.TickInterval <= 0 {
		errs = append(errs, errors.New("controller tick interval must be positive"))
	}
	if c.Controller.DefaultRetries < 0 {
		errs = append(errs, errors.New("controller default retries must not be negative"))
	}
	if c.Controller.HistorySize <= 0 {
		errs = append(errs, errors.New("controller history size must be positive"))
	}
	if c.Docking.Speed <= 0 || c.Docking.Accel <= 0 || c.Docking.Decel <= 0 {
		errs = append(errs, errors.New("docking speed, accel and decel must be positive"))
	}
	if tol := c.Docking.AngleToleranceDeg; tol != nil && (*tol < 0 || *tol >= 90) {
		errs = append(errs, errors.New("docking angle tolerance must be in [0, 90) degrees"))
	}
	switch c.Metrics.Mode {
	case MetricsModeScrape, MetricsModeOff:
	case MetricsModePush:
		if c.Metrics.PushURL == "" {
			errs = append(errs, errors.New("metrics push url is required in push mode"))
		}
		if c.Metrics.PushInterval <= 0 {
			errs = append(errs, errors.New("metrics push interval must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("metrics mode %q must be one of: scrape, push, off", c.Metrics.Mode))
	}

	names := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("schedule %d: name is required", i))
		} else if names[s.Name] {
			errs = append(errs, fmt.Errorf("schedule %q: duplicate name", s.Name))
		}
		names[s.Name] = true
		if s.Cron == "" {
			errs = append(errs, fmt.Errorf("schedule %q: cron is required", s.Name))
		}
		if s.Routine == "" {
			errs = append(errs, fmt.Errorf("schedule %q: routine is required", s.Name))
		}
		if s.Position != "" {
			if _, ok := queue.ParsePosition(s.Position); !ok {
				errs = append(errs, fmt.Errorf("schedule %q: unknown position %q", s.Name, s.Position))
			}
		}
		if s.Retries != nil && *s.Retries < 0 {
			errs = append(errs, fmt.Errorf("schedule %q: retries must not be negative", s.Name))
		}
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		errs = append(errs, errors.New("server: tls_cert and tls_key must be set together"))
	}
	return errors.Join(errs...)
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Controller.TickInterval == 0 {
		c.Controller.TickInterval = defaultTickInterval
	}
	if c.Controller.DefaultRetries == 0 {
		c.Controller.DefaultRetries = defaultDefaultRetries
	}
	if c.Controller.HistorySize == 0 {
		c.Controller.HistorySize = defaultHistorySize
	}
	if c.Docking.Speed == 0 {
		c.Docking.Speed = defaultDockSpeed
	}
	if c.Docking.Accel == 0 {
		c.Docking.Accel = defaultDockAccel
	}
	if c.Docking.Decel == 0 {
		c.Docking.Decel = defaultDockDecel
	}
	if c.Docking.AngleToleranceDeg == nil {
		tol := defaultAngleToleranceDeg
		c.Docking.AngleToleranceDeg = &tol
	}
	if c.Metrics.Mode == "" {
		c.Metrics.Mode = defaultMetricsMode
	}
	if c.Metrics.Prefix == "" {
		c.Metrics.Prefix = defaultMetricsPrefix
	}
	if c.Metrics.JobName == "" {
		c.Metrics.JobName = defaultJobName
	}
	if c.Metrics.PushInterval == 0 {
		c.Metrics.PushInterval = defaultMetricsPushInterval
	}
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListenAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.SetDefaults()
	return c
}

// DockParams converts the docking section into action parameters.
func (d DockingConfig) DockParams() dock.Params {
	p := dock.DefaultParams()
	p.Speed = d.Speed
	p.Accel = d.Accel
	p.Decel = d.Decel
	if d.AngleToleranceDeg != nil {
		p.AngleTolerance = robot.Deg(*d.AngleToleranceDeg)
	}
	p.CheckForObjectOnTop = d.CheckForObjectOnTop
	p.VerifyDelay = d.VerifyDelay
	return p
}

// Redacted returns a copy safe to show to operators. Credentials in the
// push URL are masked.
func (c Config) Redacted() Config {
	out := c
	if u, err := url.Parse(c.Metrics.PushURL); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "REDACTED")
		}
		out.Metrics.PushURL = u.String()
	}
	out.Schedules = append([]Schedule(nil), c.Schedules...)
	return out
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
