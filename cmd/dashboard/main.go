package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kurohana/kurohana/internal/api"
	"github.com/kurohana/kurohana/internal/apiclient"
	"github.com/kurohana/kurohana/internal/config"
	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/internal/logpanel"
	"github.com/kurohana/kurohana/internal/metrics"
	"github.com/kurohana/kurohana/internal/predict"
	"github.com/kurohana/kurohana/internal/ws"
	"github.com/kurohana/kurohana/pkg/bus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	cancel()
	if err != nil {
		slog.Error("kurohana-dashboard failed", "err", err)
		os.Exit(1)
	}
}

// run wires the dashboard and serves until ctx is cancelled or the HTTP
// server fails.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to config file (optional; defaults and env apply when missing)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("kurohana-dashboard starting",
		"config", *configPath,
		"api_base", cfg.Client.APIBase,
		"http_port", cfg.Server.HTTPPort,
		"poll_interval", cfg.Client.PollInterval,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The bus is owned here and handed to every publisher and subscriber.
	b := bus.New()
	m := metrics.New()
	detachMetrics := m.Attach(b)
	defer detachMetrics()

	panel := logpanel.New(cfg.Server.LogWindow)
	panel.Mount(b)
	defer panel.Unmount()

	client, err := apiclient.New(cfg.Client, b, apiclient.WithReporter(m.ReportRequest))
	if err != nil {
		return fmt.Errorf("build api client: %w", err)
	}

	poller := health.NewPoller(client, b, cfg.Client.PollInterval, health.WithObserver(m.ObservePoll))

	hub := ws.New(poller, panel, client.Base(), cfg.Server.BroadcastInterval,
		ws.WithCounters(m),
		ws.WithClientCounter(m.SetStreamClients),
	)
	detachHub := hub.Attach(b)
	defer detachHub()
	poller.OnChange(hub.NotifyStatus)

	go hub.Run(ctx)
	go poller.Run(ctx)

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

	mux := http.NewServeMux()
	mux.Handle("/api/", api.New(api.Deps{
		Status:    poller,
		Logs:      panel,
		Predictor: predict.NewService(client),
		Counters:  m,
		APIBase:   client.Base(),
	}))
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", m.Handler())

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	slog.Info("kurohana-dashboard shutting down")
	cancel()
	poller.Stop()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	return runErr
}
