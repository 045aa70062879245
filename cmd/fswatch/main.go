package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fswatch/internal/app"
	"fswatch/internal/cli"
	"fswatch/internal/config"
	"fswatch/internal/logging"
	"fswatch/internal/version"
)

const programName = "fswatch"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	return runWithSignals(args, out, errOut, signalCh)
}

func runWithSignals(args []string, out io.Writer, errOut io.Writer, signalCh <-chan os.Signal) int {
	cfg, err := config.Parse(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCodeSuccess
		}
		var configErr *config.Error
		if errors.As(err, &configErr) {
			fmt.Fprintf(errOut, "%s: %v\n", programName, configErr)
		}
		return exitCodeUsage
	}
	if cfg.ShowVersion {
		cli.WriteVersion(out, programName)
		return exitCodeSuccess
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(errOut, "%s: open log file: %v\n", programName, err)
		return exitCodeUsage
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.Info("starting", version.GetVersionInfo().LogFields())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopSignals := app.WatchShutdownSignals(logger, cancel, signalCh)
	defer stopSignals()

	err = app.Run(ctx, app.Options{
		Config: cfg,
		Stdout: out,
		Stderr: errOut,
		Logger: logger,
	})
	return exitCodeFor(err, errOut)
}

func exitCodeFor(err error, errOut io.Writer) int {
	if err == nil {
		return exitCodeSuccess
	}
	fmt.Fprintf(errOut, "%s: %v\n", programName, err)
	var buildErr app.BuildError
	if errors.As(err, &buildErr) && buildErr.Stage == app.StageFilter {
		return exitCodeUsage
	}
	return exitCodeRuntime
}
