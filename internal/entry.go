// Package internal provides the appliance's initialization and runtime
// wiring.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/obscuracam/obscurad/internal/api"
	"github.com/obscuracam/obscurad/internal/boot"
	"github.com/obscuracam/obscurad/internal/camera"
	"github.com/obscuracam/obscurad/internal/capture"
	"github.com/obscuracam/obscurad/internal/counter"
	"github.com/obscuracam/obscurad/internal/index"
	"github.com/obscuracam/obscurad/internal/indicator"
	"github.com/obscuracam/obscurad/internal/sse"
	"github.com/obscuracam/obscurad/internal/store"
)

// haltFlashInterval is how often a terminal boot state repeats its
// indicator signature while the process waits for a reset.
const haltFlashInterval = 10 * time.Second

// Run starts the appliance with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("media_path", cfg.Media.Path),
		slog.String("counter_path", cfg.Counter.Path),
		slog.String("camera_device", cfg.Camera.Device),
		slog.String("log_level", cfg.App.LogLevel.String()))

	sensor := app.sensor
	if sensor == nil {
		sensor = camera.NewV4L2Source(cfg.Camera.Device, cfg.Camera.Width, cfg.Camera.Height)
	}
	ind := app.indicator
	if ind == nil {
		ind = indicator.NewLog(logger)
	}

	// Startup sequence. Each stage maps to a terminal failure state with
	// its own indicator signature.
	var media *store.Media
	var ctr *counter.Persistent

	seq := boot.NewSequencer(boot.Stages{
		ProbeSensor: sensor.Probe,
		MountStorage: func() error {
			if err := os.MkdirAll(cfg.Media.Path, 0o755); err != nil {
				return fmt.Errorf("create media dir: %w", err)
			}
			var err error
			media, err = store.NewMedia(cfg.Media.Path)
			return err
		},
		CheckMedia: func() error {
			return probeWritable(cfg.Media.Path)
		},
		LoadCounter: func() error {
			var err error
			ctr, err = counter.Open(cfg.Counter.Path, cfg.Counter.Offset)
			return err
		},
	}, logger)

	if st := seq.Run(); st.Terminal() {
		return haltWithSignature(ctx, st, ind, logger)
	}
	defer ctr.Close()

	ind.Flash(indicator.PulsesReady)
	logger.Info("Appliance ready",
		slog.Int("next_seq", int(ctr.Value())+1),
		slog.String("photo_dir", cfg.Media.PhotoDir))

	// Capture journal, optional.
	var journal *index.DB
	if cfg.Journal.Enabled() {
		db, err := index.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer db.Close()
		journal = db

		if err := index.Sync(journal, media, cfg.Media.PhotoDir, cfg.Media.Prefix, logger); err != nil {
			logger.Warn("initial journal sync failed", slog.String("error", err.Error()))
		}
	}

	// SSE broker for capture and file events.
	broker := sse.NewBroker()
	defer broker.Close()

	svc := capture.NewService(sensor, ctr, media, ind, journal, broker.PublishFileEvent,
		cfg.Media.PhotoDir, cfg.Media.Prefix, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(svc, media, journal, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reconcile the journal against media changes made behind the
	// control plane's back (card swaps, direct file drops).
	if journal != nil {
		g.Go(func() error {
			err := index.Watch(gCtx, journal, media, cfg.Media.PhotoDir, cfg.Media.Prefix, logger,
				broker.PublishFileEvent)
			if err != nil {
				logger.Warn("media watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// probeWritable verifies the media accepts writes by creating and
// removing a marker file at its root.
func probeWritable(root string) error {
	probe := filepath.Join(root, ".media-probe")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("media not writable: %w", err)
	}
	f.Close()
	return os.Remove(probe)
}

// haltWithSignature parks the process in a terminal boot state. The
// control plane never starts; the state's indicator signature repeats
// until the operator resets the appliance.
func haltWithSignature(ctx context.Context, st boot.State, ind indicator.Indicator, logger *slog.Logger) error {
	logger.Error("Startup halted", slog.String("state", st.String()), slog.Int("pulses", st.Pulses()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ticker := time.NewTicker(haltFlashInterval)
	defer ticker.Stop()

	ind.Flash(st.Pulses())
	for {
		select {
		case <-ticker.C:
			ind.Flash(st.Pulses())
		case <-quit:
			return fmt.Errorf("startup halted: %s", st)
		case <-ctx.Done():
			return fmt.Errorf("startup halted: %s", st)
		}
	}
}
