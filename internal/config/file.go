package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fswatch/internal/filter"
	"fswatch/internal/logging"

	"gopkg.in/yaml.v3"
)

// File mirrors the YAML config file. Absent keys leave settings untouched.
type File struct {
	Path       *string      `yaml:"path"`
	Recursive  *bool        `yaml:"recursive"`
	Filter     *FileFilter  `yaml:"filter"`
	Log        *FileLog     `yaml:"log"`
	Metrics    *FileMetrics `yaml:"metrics"`
	MaxWatches *int         `yaml:"maxWatches"`
}

type FileFilter struct {
	Mode     string   `yaml:"mode"`
	Patterns []string `yaml:"patterns"`
}

type FileLog struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type FileMetrics struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads and decodes a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, &Error{Field: "config", Reason: err.Error(), Err: err}
	}
	file, err := DecodeFile(data)
	if err != nil {
		return File{}, &Error{Field: "config", Reason: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return file, nil
}

func DecodeFile(data []byte) (File, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, err
	}
	return file, nil
}

func (file File) apply(cfg *Config) error {
	if file.Path != nil {
		cfg.Path = strings.TrimSpace(*file.Path)
	}
	if file.Recursive != nil {
		cfg.Recursive = *file.Recursive
	}
	if file.Filter != nil {
		mode, err := filter.ParseMode(file.Filter.Mode)
		if err != nil {
			return &Error{Field: "filter.mode", Reason: err.Error(), Err: err}
		}
		cfg.FilterMode = mode
		cfg.Patterns = append([]string(nil), file.Filter.Patterns...)
	}
	if file.Log != nil {
		if strings.TrimSpace(file.Log.Level) != "" {
			level, ok := logging.ParseLevel(file.Log.Level)
			if !ok {
				return &Error{Field: "log.level", Reason: fmt.Sprintf("unknown level %q", file.Log.Level)}
			}
			cfg.LogLevel = level
		}
		if strings.TrimSpace(file.Log.File) != "" {
			cfg.LogFile = strings.TrimSpace(file.Log.File)
		}
	}
	if file.Metrics != nil && strings.TrimSpace(file.Metrics.Addr) != "" {
		cfg.MetricsAddr = strings.TrimSpace(file.Metrics.Addr)
	}
	if file.MaxWatches != nil {
		cfg.MaxWatches = *file.MaxWatches
	}
	return nil
}
