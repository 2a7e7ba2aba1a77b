package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"hostagent/internal/app"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches between version output, config check, and agent mode.
// Params: args command line without program name.
// Returns: process exit code.
func run(args []string) int {
	flags := flag.NewFlagSet("hostagent", flag.ContinueOnError)
	configPath := flags.String("config", "/etc/hostagent/hostagent.toml", "TOML config file, or directory of *.toml files")
	check := flags.Bool("check", false, "validate config, print the collectors and sinks it defines, and exit")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	switch {
	case *showVersion:
		fmt.Printf("hostagent %s (commit %s, built %s, %s %s/%s)\n",
			version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return exitOK
	case *check:
		if err := app.Check(*configPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "hostagent: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Runtime{ConfigPath: *configPath, Reload: reloadRequests(ctx)}); err != nil {
		fmt.Fprintf(os.Stderr, "hostagent: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// reloadRequests turns SIGHUP into reload requests. Signals that arrive while
// a reload is still pending collapse into it.
func reloadRequests(ctx context.Context) <-chan struct{} {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	requests := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()
	return requests
}
