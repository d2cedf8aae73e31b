package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/distgraph/pkg/config"
	"github.com/ritzau/distgraph/pkg/edgelist"
	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/model"
	"github.com/ritzau/distgraph/pkg/output"
	"github.com/ritzau/distgraph/pkg/runner"
	"github.com/ritzau/distgraph/pkg/watcher"
	"github.com/ritzau/distgraph/pkg/web"
)

func main() {
	flags := config.NewFlagSet("distgraph")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.WebMode {
		code := runOnce(ctx, cfg)
		stop()
		os.Exit(code)
	}
	if err := serve(ctx, flags, cfg); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}

// loadConfig loads and validates configuration and applies its log settings.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Options{Level: level, JSON: cfg.JSON, Out: os.Stderr})
	return cfg, nil
}

// loadInput reads the edge-list input, or generates the configured grid.
func loadInput(cfg *config.Config) (*model.Input, error) {
	if cfg.Input != "" {
		return edgelist.ParseFile(cfg.Input)
	}
	return cfg.Grid.Fragments(cfg.Ranks)
}

func runOptions(cfg *config.Config, reason string) runner.Options {
	return runner.Options{
		Partitioner: cfg.Partitioner,
		Directed:    cfg.Directed,
		Timeout:     cfg.Timeout,
		SlowPhase:   cfg.SlowPhase,
		Reason:      reason,
	}
}

// runOnce builds once, prints the report and returns the exit code.
func runOnce(ctx context.Context, cfg *config.Config) int {
	in, err := loadInput(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	res, err := runner.New(nil).Run(ctx, in, runOptions(cfg, "initial build"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	output.PrintRunReport(os.Stdout, res.Report)
	if res.Report.Error != "" {
		return 1
	}
	return 0
}

// serve runs the web server, building in the background and, with --watch,
// rebuilding on changes.
func serve(ctx context.Context, flags *pflag.FlagSet, cfg *config.Config) error {
	var current atomic.Pointer[config.Config]
	current.Store(cfg)

	rn := runner.New(nil)
	server := web.NewServer(rn)
	rn.SetPublisher(server.Publisher())

	rebuilds := make(chan string, 1)
	requestRebuild := func(reason string) {
		select {
		case rebuilds <- reason:
		default: // one pending rebuild is enough
		}
	}
	server.SetRebuild(requestRebuild)

	go func() {
		build := func(reason string) {
			c := current.Load()
			in, err := loadInput(c)
			if err != nil {
				logging.Error("failed to load input", "error", err)
				return
			}
			if _, err := rn.Run(ctx, in, runOptions(c, reason)); err != nil {
				logging.Error("build failed", "error", err)
			}
		}
		build("initial build")
		for {
			select {
			case <-ctx.Done():
				return
			case reason := <-rebuilds:
				build(reason)
			}
		}
	}()

	if cfg.Watch {
		if err := watch(ctx, flags, &current, requestRebuild); err != nil {
			return err
		}
	}

	return server.Start(ctx, cfg.Port)
}

// watch requests a rebuild whenever the input or config file changes. A
// config change is reloaded before the rebuild; an invalid config is
// logged and ignored.
func watch(ctx context.Context, flags *pflag.FlagSet, current *atomic.Pointer[config.Config], rebuild func(string)) error {
	cfg := current.Load()
	configPath := cfg.ConfigFile
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}
	if cfg.Input == "" && configPath == "" {
		logging.Warn("nothing to watch: no input file and no config file")
		return nil
	}
	fw, err := watcher.NewFileWatcher(cfg.Input, configPath)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	debouncer := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	go func() {
		for event := range debouncer.Output() {
			change := watcher.AnalyzeChanges(event)
			if change.NeedReconfigure {
				next, err := loadConfig(flags)
				if err != nil {
					logging.Warn("ignoring invalid config", "error", err)
					continue
				}
				current.Store(next)
			}
			logging.Info("change detected", "reason", change.Reason())
			rebuild(change.Reason())
		}
	}()
	return nil
}
