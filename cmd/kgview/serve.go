package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kgview/internal/config"
	"kgview/internal/engine"
	"kgview/internal/handler"
	"kgview/internal/hub"
	"kgview/internal/repository/sqlite"
	"kgview/internal/service"
	"kgview/internal/watcher"
)

type serveFlags struct {
	addr     string
	db       string
	snapshot string
	watch    bool
	paused   bool
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the interactive graph console",
		Long: `Starts the layout scheduler and the HTTP server.

The browser client at / receives frames over /ws and graph events over
/events. The graph is persisted to SQLite; an empty database is seeded from
--snapshot when one is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := g.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			log, err := g.logger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()
			if path != "" {
				log.Info("config loaded", zap.String("path", path))
			}
			log.Info("starting kgview", zap.String("config", cfg.Summary()))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database path (:memory: for none)")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "Snapshot file that seeds an empty database")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Reload the snapshot file when it changes")
	cmd.Flags().BoolVar(&f.paused, "paused", false, "Start with the layout paused")
	return cmd
}

// apply overrides config values with flags given on the command line
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if flags.Changed("db") {
		cfg.Database.Path = f.db
	}
	if flags.Changed("snapshot") {
		cfg.Snapshot.Path = f.snapshot
	}
	if flags.Changed("watch") {
		cfg.Snapshot.Watch = f.watch
	}
	if flags.Changed("paused") {
		cfg.Layout.Paused = f.paused
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	log.Info("database opened", zap.String("path", cfg.Database.Path))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := engine.New(cfg.EngineConfig(),
		engine.WithLogger(log),
		engine.WithMetrics(engine.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}
	eng.SetPaused(cfg.Layout.Paused)
	eng.SetShowLabels(cfg.Render.ShowLabels)

	// Background workers stop when bg is cancelled; wg tracks them.
	bg, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	eventBus := service.NewEventBus()
	sseHub := hub.New(log)
	spawn(func() { sseHub.Run(bg) })

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	spawn(func() {
		for {
			select {
			case ev := <-eventChan:
				sseHub.Broadcast(ev)
			case <-bg.Done():
				return
			}
		}
	})

	svc := service.NewGraphService(store, eng, eventBus, log)
	if err := svc.Bootstrap(ctx, cfg.Snapshot.Path); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	fps := cfg.Layout.FPS
	sched := engine.NewScheduler(eng, func() engine.Signal { return engine.NewTicker(fps) }, log)
	if err := sched.Start(bg); err != nil {
		return err
	}

	if interval := cfg.Snapshot.CommitInterval.Duration(); interval > 0 {
		spawn(func() { svc.RunCommitter(bg, interval) })
	}

	if cfg.Snapshot.Watch && cfg.Snapshot.Path != "" {
		path := cfg.Snapshot.Path
		w := watcher.New(path, func(ctx context.Context) {
			if _, err := svc.ImportFile(ctx, path); err != nil {
				log.Warn("snapshot reload failed", zap.String("path", path), zap.Error(err))
			}
		}, log).WithDebounce(cfg.Snapshot.Debounce.Duration())
		spawn(func() {
			if err := w.Watch(bg); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("watcher stopped", zap.Error(err))
			}
		})
	}

	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		return fmt.Errorf("embedded web content: %w", err)
	}
	stream := handler.NewStream(eng, cfg.Server.StreamFPS, log)

	router := handler.NewRouter(handler.Deps{
		Service:    svc,
		Events:     sseHub,
		Stream:     stream,
		Registry:   reg,
		Static:     webContent,
		CORSOrigin: cfg.Server.CORSOrigin,
		Log:        log,
	})

	// No WriteTimeout: /events and /ws are long-lived.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serveErr:
		log.Error("server error", zap.Error(runErr))
	}

	sched.Stop()
	stream.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}

	cancel()
	wg.Wait()

	if saved, err := svc.SaveLayout(shutdownCtx); err != nil {
		log.Warn("final layout save failed", zap.Error(err))
	} else if saved {
		log.Info("layout saved")
	}

	log.Info("server stopped")
	return runErr
}
