// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"strconv"
)

// Version values are set at build time using -ldflags.
var Version = "dev"
var Major = "0"
var Minor = "0"
var Patch = "0"
var Built = ""
var GitCommit = ""

type VersionInfo struct {
	Version   string `json:"version"`
	Major     int    `json:"major"`
	Minor     int    `json:"minor"`
	Patch     int    `json:"patch"`
	Built     string `json:"built,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Major:     parseInt(Major),
		Minor:     parseInt(Minor),
		Patch:     parseInt(Patch),
		Built:     Built,
		GitCommit: GitCommit,
	}
}

// LogFields describes the build for diagnostic log lines.
func (info VersionInfo) LogFields() map[string]string {
	fields := map[string]string{
		"version": info.Version,
		"semver":  fmt.Sprintf("%d.%d.%d", info.Major, info.Minor, info.Patch),
	}
	if info.Built != "" {
		fields["built"] = info.Built
	}
	if info.GitCommit != "" {
		fields["git_commit"] = info.GitCommit
	}
	return fields
}

func parseInt(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
