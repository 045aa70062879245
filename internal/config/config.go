// Package config resolves watcher settings from flags, a YAML file and the
// environment. Flags win over the file, the file wins over the environment.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fswatch/internal/cli"
	"fswatch/internal/filter"
	"fswatch/internal/logging"
)

const (
	EnvPath        = "FSWATCH_PATH"
	EnvConfig      = "FSWATCH_CONFIG"
	EnvLogLevel    = "FSWATCH_LOG_LEVEL"
	EnvLogFile     = "FSWATCH_LOG_FILE"
	EnvMetricsAddr = "FSWATCH_METRICS_ADDR"

	DefaultMaxWatches = 8192
	DefaultLogLevel   = logging.LevelWarning
)

type Config struct {
	Path        string
	Recursive   bool
	FilterMode  filter.Mode
	Patterns    []string
	LogLevel    logging.Level
	LogFile     string
	MetricsAddr string
	MaxWatches  int
	ConfigFile  string
	ShowVersion bool
}

// Error reports an invalid setting.
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Default() Config {
	return Config{
		Recursive:  true,
		FilterMode: filter.ModeOptOut,
		LogLevel:   DefaultLogLevel,
		MaxWatches: DefaultMaxWatches,
	}
}

// Parse resolves the configuration for args. It returns flag.ErrHelp after
// printing usage when help was requested.
func Parse(args []string, errOut io.Writer) (Config, error) {
	if errOut == nil {
		errOut = io.Discard
	}
	fs := flag.NewFlagSet("fswatch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	pathFlag := fs.String("path", "", "Directory to watch (env: FSWATCH_PATH)")
	optOutFlag := fs.String("filter-optout", "", "Comma separated globs to exclude")
	optInFlag := fs.String("filter-optin", "", "Comma separated globs to include")
	recursiveFlag := fs.Bool("recursive", true, "Watch subdirectories")
	configFlag := fs.String("config", "", "YAML config file (env: FSWATCH_CONFIG)")
	logLevelFlag := fs.String("log-level", "", "Log level: debug, info, warning, error (env: FSWATCH_LOG_LEVEL)")
	logFileFlag := fs.String("log-file", "", "Diagnostic log file (env: FSWATCH_LOG_FILE)")
	metricsAddrFlag := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (env: FSWATCH_METRICS_ADDR)")
	maxWatchesFlag := fs.Int("max-watches", DefaultMaxWatches, "Maximum number of watched directories")
	helpVersion := cli.AddHelpVersionFlags(fs, "Show this help message", "Print version and exit")
	fs.Usage = func() {
		printHelp(fs.Output())
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if helpVersion.Help {
		fs.Usage()
		return Config{}, flag.ErrHelp
	}
	if helpVersion.Version {
		return Config{ShowVersion: true}, nil
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return Config{}, &Error{Reason: fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.ConfigFile = strings.TrimSpace(*configFlag)
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = strings.TrimSpace(os.Getenv(EnvConfig))
	}
	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return Config{}, err
		}
		if err := file.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	if cli.WasSet(fs, "path") {
		cfg.Path = strings.TrimSpace(*pathFlag)
	}
	if cli.WasSet(fs, "recursive") {
		cfg.Recursive = *recursiveFlag
	}
	if cli.WasSet(fs, "log-level") {
		level, ok := logging.ParseLevel(*logLevelFlag)
		if !ok {
			return Config{}, &Error{Field: "log-level", Reason: fmt.Sprintf("unknown level %q", *logLevelFlag)}
		}
		cfg.LogLevel = level
	}
	if cli.WasSet(fs, "log-file") {
		cfg.LogFile = strings.TrimSpace(*logFileFlag)
	}
	if cli.WasSet(fs, "metrics-addr") {
		cfg.MetricsAddr = strings.TrimSpace(*metricsAddrFlag)
	}
	if cli.WasSet(fs, "max-watches") {
		cfg.MaxWatches = *maxWatchesFlag
	}

	optOutSet := cli.WasSet(fs, "filter-optout")
	optInSet := cli.WasSet(fs, "filter-optin")
	switch {
	case optOutSet && optInSet:
		return Config{}, &Error{Field: "filter", Reason: "--filter-optout and --filter-optin are mutually exclusive"}
	case optOutSet:
		cfg.FilterMode = filter.ModeOptOut
		cfg.Patterns = cli.SplitList(*optOutFlag)
	case optInSet:
		cfg.FilterMode = filter.ModeOptIn
		cfg.Patterns = cli.SplitList(*optInFlag)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	absolute, err := filepath.Abs(cfg.Path)
	if err != nil {
		return Config{}, &Error{Field: "path", Reason: err.Error(), Err: err}
	}
	cfg.Path = absolute
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if value := strings.TrimSpace(os.Getenv(EnvPath)); value != "" {
		cfg.Path = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvLogLevel)); value != "" {
		level, ok := logging.ParseLevel(value)
		if !ok {
			return &Error{Field: EnvLogLevel, Reason: fmt.Sprintf("unknown level %q", value)}
		}
		cfg.LogLevel = level
	}
	if value := strings.TrimSpace(os.Getenv(EnvLogFile)); value != "" {
		cfg.LogFile = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvMetricsAddr)); value != "" {
		cfg.MetricsAddr = value
	}
	return nil
}

// Validate checks a resolved configuration.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Path) == "" {
		return &Error{Field: "path", Reason: "path is required (--path or FSWATCH_PATH)"}
	}
	switch cfg.FilterMode {
	case filter.ModeOptIn, filter.ModeOptOut:
	default:
		return &Error{Field: "filter", Reason: fmt.Sprintf("unknown mode %q", cfg.FilterMode)}
	}
	if _, ok := logging.ParseLevel(string(cfg.LogLevel)); !ok {
		return &Error{Field: "log-level", Reason: fmt.Sprintf("unknown level %q", cfg.LogLevel)}
	}
	if cfg.MaxWatches <= 0 {
		return &Error{Field: "max-watches", Reason: "must be positive"}
	}
	return nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: fswatch --path DIR [options]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Watch a directory tree and print Created, Modified and Removed events as JSON lines")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	cli.WriteOption(out, "--path DIR", "Directory to watch (env: FSWATCH_PATH, required)")
	cli.WriteOption(out, "--filter-optout GLOBS", "Comma separated globs to exclude")
	cli.WriteOption(out, "--filter-optin GLOBS", "Comma separated globs to include")
	cli.WriteOption(out, "--recursive", "Watch subdirectories (default: true)")
	cli.WriteOption(out, "--config FILE", "YAML config file (env: FSWATCH_CONFIG)")
	cli.WriteOption(out, "--log-level LEVEL", "debug, info, warning or error (env: FSWATCH_LOG_LEVEL, default: warning)")
	cli.WriteOption(out, "--log-file FILE", "Diagnostic log file (env: FSWATCH_LOG_FILE, default: none)")
	cli.WriteOption(out, "--metrics-addr ADDR", "Serve Prometheus /metrics (env: FSWATCH_METRICS_ADDR)")
	cli.WriteOption(out, "--max-watches N", "Maximum watched directories (default: 8192)")
	cli.WriteOption(out, "--help", "Show this help message")
	cli.WriteOption(out, "--version", "Print version and exit")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Output:")
	fmt.Fprintln(out, "  Events are written to stdout, errors to stderr, one JSON object per line.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0  Success")
	fmt.Fprintln(out, "  1  Runtime failure")
	fmt.Fprintln(out, "  2  Usage or configuration error")
}
