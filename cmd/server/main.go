package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rampkit/rampkit-go/internal/api"
	"github.com/rampkit/rampkit-go/internal/config"
	"github.com/rampkit/rampkit-go/internal/manifest"
	"github.com/rampkit/rampkit-go/internal/observability"
	"github.com/rampkit/rampkit-go/internal/store"
	"github.com/rampkit/rampkit-go/internal/telemetry"
	"github.com/rampkit/rampkit-go/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := observability.InitLogger("rampkit", cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()

	m, err := loadManifest(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("manifest load failed")
	}
	fp, _ := m.Fingerprint()
	log.Info().Int("targets", len(m.Targets)).Uint64("fingerprint", fp).Msg("manifest loaded")

	telemetry.Init()

	tracker := tracking.NewDispatcher(cfg.TrackingEndpoint, log,
		tracking.WithDropCounter(telemetry.TrackingDropped.Inc))
	tracker.Start()
	defer tracker.Close()

	srvAPI := api.NewServer(m.Targets, st, tracker, api.Options{
		AppID:          cfg.TrackingAppID,
		SettlingWindow: cfg.SettlingWindow(),
		StaleWindow:    cfg.StaleWindow(),
		RateLimitPerIP: cfg.RateLimitPerIP,
	}, log)

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     srvAPI.Router(),
		ReadTimeout: 10 * time.Second,
		// WriteTimeout stays 0: SSE connections are long-lived.
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	log.Info().Msg("stopped")
}

// loadManifest prefers a local file and falls back to the remote endpoint.
func loadManifest(ctx context.Context, cfg *config.Config) (*manifest.Manifest, error) {
	if cfg.ManifestPath != "" {
		return manifest.LoadFile(cfg.ManifestPath)
	}
	return manifest.NewFetcher(nil).Fetch(ctx, cfg.ManifestURL)
}
