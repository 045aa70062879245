package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"fswatch/internal/filter"
	"fswatch/internal/logging"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvPath, EnvConfig, EnvLogLevel, EnvLogFile, EnvMetricsAddr} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fswatch.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func expectConfigError(t *testing.T, err error, field string) {
	t.Helper()
	var configErr *Error
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if configErr.Field != field {
		t.Fatalf("expected field %q, got %q (%v)", field, configErr.Field, err)
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Parse([]string{"--path", root}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Path != root {
		t.Fatalf("expected path %q, got %q", root, cfg.Path)
	}
	if !cfg.Recursive || cfg.FilterMode != filter.ModeOptOut || len(cfg.Patterns) != 0 {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.LogLevel != logging.LevelWarning || cfg.MaxWatches != DefaultMaxWatches {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.LogFile != "" || cfg.MetricsAddr != "" {
		t.Fatalf("expected logging and metrics off by default, got %#v", cfg)
	}
}

func TestParseMakesPathAbsolute(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]string{"--path", "relative/dir"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !filepath.IsAbs(cfg.Path) || !strings.HasSuffix(cfg.Path, filepath.Join("relative", "dir")) {
		t.Fatalf("expected absolute path, got %q", cfg.Path)
	}
}

func TestParseFilterFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]string{"--path", "/srv", "--filter-optin", "**/*.go, *.md"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.FilterMode != filter.ModeOptIn || !reflect.DeepEqual(cfg.Patterns, []string{"**/*.go", "*.md"}) {
		t.Fatalf("unexpected filter %q %v", cfg.FilterMode, cfg.Patterns)
	}

	cfg, err = Parse([]string{"--path", "/srv", "--filter-optout", "*.tmp"}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.FilterMode != filter.ModeOptOut || !reflect.DeepEqual(cfg.Patterns, []string{"*.tmp"}) {
		t.Fatalf("unexpected filter %q %v", cfg.FilterMode, cfg.Patterns)
	}
}

func TestParseRejectsBothFilterModes(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]string{"--path", "/srv", "--filter-optin", "*.go", "--filter-optout", "*.tmp"}, io.Discard)
	expectConfigError(t, err, "filter")
}

func TestParseRequiresPath(t *testing.T) {
	clearEnv(t)
	_, err := Parse(nil, io.Discard)
	expectConfigError(t, err, "path")
}

func TestParseHelpAndVersion(t *testing.T) {
	clearEnv(t)
	var out strings.Builder
	_, err := Parse([]string{"--help"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "--filter-optout") {
		t.Fatalf("expected usage text, got %q", out.String())
	}

	cfg, err := Parse([]string{"--version"}, io.Discard)
	if err != nil || !cfg.ShowVersion {
		t.Fatalf("expected version request, got %#v %v", cfg, err)
	}
}

func TestParseRejectsUnknownFlagsAndArgs(t *testing.T) {
	clearEnv(t)
	if _, err := Parse([]string{"--bogus"}, io.Discard); err == nil {
		t.Fatal("expected unknown flag error")
	}
	_, err := Parse([]string{"--path", "/srv", "extra"}, io.Discard)
	expectConfigError(t, err, "")
}

func TestParseEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPath, "/from/env")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogFile, "/var/log/fswatch.log")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9109")

	cfg, err := Parse(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Path != filepath.Clean("/from/env") || cfg.LogLevel != logging.LevelDebug {
		t.Fatalf("unexpected env config %#v", cfg)
	}
	if cfg.LogFile != "/var/log/fswatch.log" || cfg.MetricsAddr != "127.0.0.1:9109" {
		t.Fatalf("unexpected env config %#v", cfg)
	}

	t.Setenv(EnvLogLevel, "loud")
	_, err = Parse(nil, io.Discard)
	expectConfigError(t, err, EnvLogLevel)
}

func TestParseFileAndPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPath, "/from/env")
	t.Setenv(EnvLogLevel, "error")
	path := writeConfig(t, `
path: /from/file
recursive: false
filter:
  mode: optin
  patterns: ["*.go", "*.mod"]
log:
  level: info
  file: /tmp/fswatch.log
metrics:
  addr: 127.0.0.1:9200
maxWatches: 64
`)

	cfg, err := Parse([]string{"--config", path}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Path != filepath.Clean("/from/file") || cfg.Recursive || cfg.MaxWatches != 64 {
		t.Fatalf("expected file to override env, got %#v", cfg)
	}
	if cfg.FilterMode != filter.ModeOptIn || !reflect.DeepEqual(cfg.Patterns, []string{"*.go", "*.mod"}) {
		t.Fatalf("unexpected filter %q %v", cfg.FilterMode, cfg.Patterns)
	}
	if cfg.LogLevel != logging.LevelInfo || cfg.LogFile != "/tmp/fswatch.log" || cfg.MetricsAddr != "127.0.0.1:9200" {
		t.Fatalf("unexpected file settings %#v", cfg)
	}

	cfg, err = Parse([]string{
		"--config", path,
		"--path", "/from/flag",
		"--recursive=true",
		"--filter-optout", "*.tmp",
		"--log-level", "debug",
		"--max-watches", "10",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Path != filepath.Clean("/from/flag") || !cfg.Recursive || cfg.MaxWatches != 10 {
		t.Fatalf("expected flags to override file, got %#v", cfg)
	}
	if cfg.FilterMode != filter.ModeOptOut || !reflect.DeepEqual(cfg.Patterns, []string{"*.tmp"}) {
		t.Fatalf("unexpected filter %q %v", cfg.FilterMode, cfg.Patterns)
	}
	if cfg.LogLevel != logging.LevelDebug {
		t.Fatalf("expected flag log level, got %q", cfg.LogLevel)
	}
}

func TestParseConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeConfig(t, "path: /srv/data\n"))

	cfg, err := Parse(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Path != filepath.Clean("/srv/data") {
		t.Fatalf("expected path from env config file, got %q", cfg.Path)
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	expectConfigError(t, err, "config")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}

	_, err = LoadFile(writeConfig(t, "path: /srv\nunknown: true\n"))
	expectConfigError(t, err, "config")
}

func TestDecodeEmptyFile(t *testing.T) {
	file, err := DecodeFile(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if file.Path != nil || file.Filter != nil {
		t.Fatalf("expected empty file, got %#v", file)
	}
}

func TestFileRejectsBadValues(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]string{"--config", writeConfig(t, "path: /srv\nfilter:\n  mode: sometimes\n")}, io.Discard)
	expectConfigError(t, err, "filter.mode")

	_, err = Parse([]string{"--config", writeConfig(t, "path: /srv\nlog:\n  level: chatty\n")}, io.Discard)
	expectConfigError(t, err, "log.level")

	_, err = Parse([]string{"--config", writeConfig(t, "path: /srv\nmaxWatches: 0\n")}, io.Discard)
	expectConfigError(t, err, "max-watches")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Path = "/srv"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.FilterMode = "sideways"
	expectConfigError(t, cfg.Validate(), "filter")
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Field: "path", Reason: "path is required"}
	if err.Error() != "path: path is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if (&Error{Reason: "bare"}).Error() != "bare" {
		t.Fatal("expected bare reason without field")
	}
}
