// Package main is the entry point for the emitter daemon.
//
// The daemon loads configuration, runs Lua hook scripts against a shared
// emitter, and turns file system changes under the watched paths into
// events. Every emission is logged.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/emitter/internal/config"
	"github.com/dshills/emitter/internal/event"
	"github.com/dshills/emitter/internal/event/topic"
	"github.com/dshills/emitter/internal/logging"
	"github.com/dshills/emitter/internal/script"
	"github.com/dshills/emitter/internal/watcher"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errHelp is returned by parseFlags when usage or version was printed.
var errHelp = errors.New("help requested")

// Options holds the command line settings. Non-empty values override the
// configuration file.
type Options struct {
	ConfigPath string
	LogLevel   string
	Watch      []string
	Scripts    []string

	// Emit names an event to emit once at startup with Args as its arguments.
	Emit string
	Args []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, opts, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stdout, stderr io.Writer) (Options, error) {
	var opts Options
	var watch, scripts string
	var showVersion bool

	fs := flag.NewFlagSet("emitter", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&watch, "watch", "", "Comma-separated directories to watch")
	fs.StringVar(&watch, "w", "", "Comma-separated directories to watch (shorthand)")
	fs.StringVar(&scripts, "script", "", "Comma-separated Lua scripts to load")
	fs.StringVar(&scripts, "s", "", "Comma-separated Lua scripts to load (shorthand)")
	fs.StringVar(&opts.Emit, "emit", "", "Emit an event with the remaining arguments, then exit unless watching")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "emitter - typed event emitter daemon\n\n")
		fmt.Fprintf(stderr, "Usage: emitter [options] [args...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  emitter -w ./data                    Log file changes under ./data\n")
		fmt.Fprintf(stderr, "  emitter -s hooks.lua -w ./data       Run hooks on file changes\n")
		fmt.Fprintf(stderr, "  emitter -s hooks.lua -emit user.created ada\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}

	if showVersion {
		fmt.Fprintf(stdout, "emitter %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, errHelp
	}

	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
			return opts, err
		}
	}
	if opts.Emit != "" {
		if err := topic.Topic(opts.Emit).Validate(); err != nil {
			return opts, fmt.Errorf("-emit: %w", err)
		}
	}

	opts.Watch = splitList(watch)
	opts.Scripts = splitList(scripts)
	opts.Args = fs.Args()
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if len(opts.Watch) > 0 {
		cfg.Watch.Paths = opts.Watch
	}
	if len(opts.Scripts) > 0 {
		cfg.Scripts.Files = opts.Scripts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve runs the daemon until ctx is done. Without watch paths it returns
// once scripts are loaded and the startup event is emitted.
func serve(ctx context.Context, opts Options, logOut io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	lc := cfg.LoggingConfig()
	lc.Output = logOut
	logger, err := logging.New(lc)
	if err != nil {
		return err
	}
	defer logger.Sync()

	em := event.New(append(cfg.EmitterOptions(),
		event.WithLogger(logging.WithComponent(logger, "emitter")),
	)...)
	defer em.ClearAll()

	trace := logging.WithComponent(logger, "trace")
	em.OnAny(func(_ context.Context, name topic.Topic, args []any) error {
		trace.Info("event", zap.String("topic", string(name)), zap.Any("args", args))
		return nil
	})

	for _, path := range cfg.Scripts.Files {
		b := script.New(path, em, script.WithLogger(logging.WithComponent(logger, "script")))
		defer b.Close()

		if err := b.LoadFile(path); err != nil {
			return err
		}
		logger.Info("script loaded", zap.String("path", path), zap.Int("registrations", b.Registrations()))
	}

	if opts.Emit != "" {
		args := make([]any, len(opts.Args))
		for i, a := range opts.Args {
			args[i] = a
		}
		if err := em.EmitTopic(ctx, topic.Topic(opts.Emit), args...); err != nil {
			return fmt.Errorf("emit %s: %w", opts.Emit, err)
		}
	}

	if len(cfg.Watch.Paths) == 0 {
		return nil
	}
	return watch(ctx, cfg, em, logger)
}

// watch turns file system changes into events until ctx is done.
func watch(ctx context.Context, cfg *config.Config, em *event.Emitter, logger *zap.Logger) error {
	src, err := watcher.New(em,
		watcher.WithBatchInterval(cfg.Watch.BatchInterval.Std()),
		watcher.WithIgnorePatterns(cfg.Watch.Ignore),
		watcher.WithIgnoreHidden(cfg.Watch.IgnoreHidden),
		watcher.WithLogger(logging.WithComponent(logger, "watcher")),
	)
	if err != nil {
		return err
	}
	defer src.Close()

	for _, path := range cfg.Watch.Paths {
		if err := src.WatchRecursive(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	logger.Info("watching", zap.Strings("paths", src.WatchedPaths()))

	batches := event.Events(em, watcher.KeyBatch)
	defer batches.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Run(gctx)
	})
	g.Go(func() error {
		for batch := range batches.All(gctx) {
			logger.Info("changes", zap.Int("count", len(batch)))
		}
		return nil
	})

	err = g.Wait()

	stats := src.Stats()
	logger.Info("watcher stopped",
		zap.Int64("events", stats.TotalEvents),
		zap.Int64("batches", stats.Batches),
		zap.Int64("errors", stats.Errors),
	)
	return err
}
