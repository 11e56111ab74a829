package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kurohana/kurohana/internal/apiclient"
	"github.com/kurohana/kurohana/internal/config"
	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/internal/logpanel"
	"github.com/kurohana/kurohana/internal/predict"
	"github.com/kurohana/kurohana/internal/tui"
	"github.com/kurohana/kurohana/pkg/bus"
)

// runUI is replaced in tests; the real console needs a terminal.
var runUI = tui.Run

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kurohana-console:", err)
		os.Exit(1)
	}
}

// run wires the console and blocks until it exits. Every resource it opens is
// released before it returns, including on error.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to config file (optional; defaults and env apply when missing)")
	logFile := fs.String("log-file", "", "write process logs to this file; the terminal belongs to the console")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()})))
	slog.Info("kurohana-console starting", "config", *configPath, "api_base", cfg.Client.APIBase)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := bus.New()
	panel := logpanel.New(cfg.Server.LogWindow)
	panel.Mount(b)
	defer panel.Unmount()

	feed := tui.NewFeed()
	detachFeed := feed.Attach(b)
	defer detachFeed()

	client, err := apiclient.New(cfg.Client, b)
	if err != nil {
		return fmt.Errorf("build api client: %w", err)
	}

	poller := health.NewPoller(client, b, cfg.Client.PollInterval)
	poller.OnChange(feed.NotifyStatus)
	go poller.Run(ctx)
	defer poller.Stop()

	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			poller.SetInterval(updated.Client.PollInterval)
			panel.Resize(updated.Server.LogWindow)
			b.Info(fmt.Sprintf("[config] reloaded: poll every %s, window %d",
				updated.Client.PollInterval, updated.Server.LogWindow))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	err = runUI(ctx, tui.Deps{
		Status:    poller,
		Logs:      panel,
		Predictor: predict.NewService(client),
		Feed:      feed,
		APIBase:   client.Base(),
		Timeout:   cfg.Client.RequestTimeout,
	})
	if err != nil {
		slog.Error("console stopped", "err", err)
		return err
	}
	slog.Info("kurohana-console stopped")
	return nil
}
