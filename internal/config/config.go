package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/cpucollect/internal/logging"
)

// Commands other than the default collection run.
const (
	CommandFind = "find"
	CommandStat = "stat"
)

const envPrefix = "CPUCOLLECT_"

// Config carries runtime options for cpucollect.
type Config struct {
	Interval       time.Duration `yaml:"interval"`
	ProcessRegex   string        `yaml:"process_regex"`
	OutputFile     string        `yaml:"output_file"`
	ProcRoot       string        `yaml:"proc_root"`
	FinderInterval time.Duration `yaml:"finder_interval"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	LogFile        string        `yaml:"log_file"`
	Watch          bool          `yaml:"watch"`

	Command    string `yaml:"-"`
	ConfigFile string `yaml:"-"`
	EnvFile    string `yaml:"-"`
}

func Default() Config {
	return Config{
		Interval:       time.Second,
		ProcRoot:       "/proc",
		FinderInterval: 500 * time.Millisecond,
		LogLevel:       "info",
		LogFormat:      logging.FormatText,
	}
}

// FromFlags builds the configuration. Later sources win: defaults, the YAML
// file named by --config, CPUCOLLECT_* environment variables (optionally
// seeded from --env-file), then flags given on the command line. It returns
// flag.ErrHelp when help was requested.
func FromFlags(args []string, usage io.Writer) (Config, error) {
	flagged := Default()
	var intervalMs int

	fs := flag.NewFlagSet("cpucollect", flag.ContinueOnError)
	fs.SetOutput(usage)
	fs.Func("interval", "sampling interval, e.g. 250ms or 2 (seconds)", func(v string) error {
		d, err := parseInterval(v)
		flagged.Interval = d
		return err
	})
	fs.IntVar(&intervalMs, "sampling-interval-ms", 0, "sampling interval in milliseconds")
	fs.StringVar(&flagged.ProcessRegex, "process-regex", "", "regex selecting the process to track")
	fs.StringVar(&flagged.OutputFile, "output-file", "", "CSV output file (default stdout)")
	fs.StringVar(&flagged.ProcRoot, "proc-root", flagged.ProcRoot, "procfs mount point")
	fs.DurationVar(&flagged.FinderInterval, "finder-interval", flagged.FinderInterval, "process discovery poll interval")
	fs.StringVar(&flagged.LogLevel, "log-level", flagged.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&flagged.LogFormat, "log-format", flagged.LogFormat, "log format: text|json")
	fs.StringVar(&flagged.LogFile, "log-file", "", "append logs to this file (default stderr, discarded with --watch)")
	fs.BoolVar(&flagged.Watch, "watch", false, "show a live view instead of writing CSV")
	fs.StringVar(&flagged.ConfigFile, "config", "", "YAML configuration file")
	fs.StringVar(&flagged.EnvFile, "env-file", "", "dotenv file seeding CPUCOLLECT_* variables")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()

	// A command may come before or after the flags.
	if rest := fs.Args(); len(rest) > 0 {
		switch rest[0] {
		case CommandFind, CommandStat:
			cfg.Command = rest[0]
		case "help":
			fs.Usage()
			return cfg, flag.ErrHelp
		default:
			return cfg, fmt.Errorf("unknown argument: %s", rest[0])
		}
		if err := fs.Parse(rest[1:]); err != nil {
			return cfg, err
		}
		if extra := fs.Args(); len(extra) > 0 {
			return cfg, fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
		}
	}
	cfg.ConfigFile = flagged.ConfigFile
	cfg.EnvFile = flagged.EnvFile

	if cfg.ConfigFile != "" {
		if err := mergeConfigFile(&cfg, cfg.ConfigFile); err != nil {
			return cfg, fmt.Errorf("failed to load config from %s: %w", cfg.ConfigFile, err)
		}
	}

	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil {
			return cfg, fmt.Errorf("failed to load env file %s: %w", cfg.EnvFile, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "interval":
			cfg.Interval = flagged.Interval
		case "sampling-interval-ms":
			cfg.Interval = time.Duration(intervalMs) * time.Millisecond
		case "process-regex":
			cfg.ProcessRegex = flagged.ProcessRegex
		case "output-file":
			cfg.OutputFile = flagged.OutputFile
		case "proc-root":
			cfg.ProcRoot = flagged.ProcRoot
		case "finder-interval":
			cfg.FinderInterval = flagged.FinderInterval
		case "log-level":
			cfg.LogLevel = flagged.LogLevel
		case "log-format":
			cfg.LogFormat = flagged.LogFormat
		case "log-file":
			cfg.LogFile = flagged.LogFile
		case "watch":
			cfg.Watch = flagged.Watch
		}
	})

	if verrs := cfg.Validate(); len(verrs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %w", errors.Join(asErrors(verrs)...))
	}
	return cfg, nil
}

func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	mergeConfig(cfg, &overlay)
	return nil
}

// mergeConfig copies the non-zero fields of src into dst.
func mergeConfig(dst, src *Config) {
	if src.Interval != 0 {
		dst.Interval = src.Interval
	}
	if src.ProcessRegex != "" {
		dst.ProcessRegex = src.ProcessRegex
	}
	if src.OutputFile != "" {
		dst.OutputFile = src.OutputFile
	}
	if src.ProcRoot != "" {
		dst.ProcRoot = src.ProcRoot
	}
	if src.FinderInterval != 0 {
		dst.FinderInterval = src.FinderInterval
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.LogFormat != "" {
		dst.LogFormat = src.LogFormat
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
	if src.Watch {
		dst.Watch = true
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("%sINTERVAL: %w", envPrefix, err)
		}
		cfg.Interval = d
	}
	if v := os.Getenv(envPrefix + "FINDER_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("%sFINDER_INTERVAL: %w", envPrefix, err)
		}
		cfg.FinderInterval = d
	}
	if v := os.Getenv(envPrefix + "PROCESS_REGEX"); v != "" {
		cfg.ProcessRegex = v
	}
	if v := os.Getenv(envPrefix + "OUTPUT_FILE"); v != "" {
		cfg.OutputFile = v
	}
	if v := os.Getenv(envPrefix + "PROC_ROOT"); v != "" {
		cfg.ProcRoot = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envPrefix + "WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sWATCH: %w", envPrefix, err)
		}
		cfg.Watch = b
	}
	return nil
}

// parseInterval accepts Go durations and bare numbers of seconds.
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("invalid sampling interval value %s", v)
}

// ValidationError names the offending option.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}

// Validate checks option ranges and that the process regex compiles.
func (c Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Interval <= 0 {
		errs = append(errs, ValidationError{"interval", fmt.Sprintf("must be positive, got %s", c.Interval)})
	}
	if c.FinderInterval <= 0 {
		errs = append(errs, ValidationError{"finder_interval", fmt.Sprintf("must be positive, got %s", c.FinderInterval)})
	}
	if c.ProcessRegex != "" {
		if _, err := regexp.Compile(c.ProcessRegex); err != nil {
			errs = append(errs, ValidationError{"process_regex", err.Error()})
		}
	}
	if c.Command == CommandFind && c.ProcessRegex == "" {
		errs = append(errs, ValidationError{"process_regex", "required by find, use --process-regex='...'"})
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, ValidationError{"log_level", err.Error()})
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, ValidationError{"log_format", fmt.Sprintf("must be text or json, got '%s'", c.LogFormat)})
	}
	return errs
}

func asErrors(verrs []ValidationError) []error {
	out := make([]error, len(verrs))
	for i, e := range verrs {
		out[i] = e
	}
	return out
}
