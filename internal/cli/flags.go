// Package cli holds flag helpers shared by the command line entry points.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"fswatch/internal/version"
)

const (
	defaultHelpDesc    = "Show help"
	defaultVersionDesc = "Print version and exit"
)

type HelpVersionFlags struct {
	Help    bool
	Version bool
}

func AddHelpVersionFlags(fs *flag.FlagSet, helpDesc, versionDesc string) *HelpVersionFlags {
	if fs == nil {
		return &HelpVersionFlags{}
	}
	if helpDesc == "" {
		helpDesc = defaultHelpDesc
	}
	if versionDesc == "" {
		versionDesc = defaultVersionDesc
	}
	flags := &HelpVersionFlags{}
	fs.BoolVar(&flags.Help, "help", false, helpDesc)
	fs.BoolVar(&flags.Help, "h", false, helpDesc)
	fs.BoolVar(&flags.Version, "version", false, versionDesc)
	return flags
}

// SplitList splits a comma separated flag value, dropping blank items.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		items = append(items, part)
	}
	return items
}

// WasSet reports whether name was given on the command line.
func WasSet(fs *flag.FlagSet, name string) bool {
	if fs == nil {
		return false
	}
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// WriteOption prints one aligned row of a help listing.
func WriteOption(out io.Writer, name, desc string) {
	fmt.Fprintf(out, "  %-24s %s\n", name, desc)
}

// WriteVersion prints the program name with the build version.
func WriteVersion(out io.Writer, program string) {
	if version.Version == "" || version.Version == "dev" {
		fmt.Fprintf(out, "%s dev\n", program)
		return
	}
	fmt.Fprintf(out, "%s version %s\n", program, version.Version)
	if version.GitCommit != "" {
		fmt.Fprintf(out, "commit %s\n", version.GitCommit)
	}
}
