package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StationData.influxDB/internal/config"
	"StationData.influxDB/internal/controller"
	"StationData.influxDB/internal/kma"
	"StationData.influxDB/internal/logging"
	"StationData.influxDB/internal/metrics"
	"StationData.influxDB/internal/middleware"
	"StationData.influxDB/internal/repository"
	"StationData.influxDB/internal/routes"
	"StationData.influxDB/internal/service"
	"StationData.influxDB/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Pretty = cfg.LogPretty
	logger := logging.New(logCfg)
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init(prometheus.DefaultRegisterer)

	influx, err := config.InitInfluxClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer influx.Close()

	repo := repository.NewInfluxDBRepository(influx, cfg.InfluxDBOrg, cfg.InfluxDBBucket)
	created, err := repo.EnsureBucket(ctx)
	if err != nil {
		return fmt.Errorf("ensuring bucket %s: %w", repo.DefaultBucket(), err)
	}
	if created {
		logger.Info().Str("bucket", repo.DefaultBucket()).Msg("bucket created")
	}

	var (
		catalog   repository.SensorCatalog
		keys      middleware.KeyStore
		forecasts repository.ForecastSummaryStore
	)
	if cfg.DatabaseURL != "" {
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		sensors := repository.NewSensorRepository(db)
		if err := service.SeedSensorCatalog(ctx, sensors, logger); err != nil {
			return err
		}
		catalog = sensors
		keys = repository.NewAPIKeyRepository(db)
		forecasts = repository.NewForecastSummaryRepository(db)
	} else {
		logger.Warn().Msg("DATABASE_URL not set: using built-in sensors, API keys and forecast storage disabled")
		seed, err := service.SeedSensors()
		if err != nil {
			return err
		}
		catalog = service.NewStaticCatalog(seed)
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	rdb, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set: rate limits are per process")
	}

	kmaClient := kma.NewClient(kma.Config{
		ObservationURL: cfg.KMAObservationURL,
		ForecastURL:    cfg.KMAForecastURL,
		AuthKey:        cfg.KMAAuthKey,
		Station:        cfg.KMAStation,
		Timeout:        cfg.InfluxTimeout,
	})
	measurementService := service.NewMeasurementService(repo, catalog, repo.DefaultBucket(), logger)
	observationService := service.NewObservationService(kmaClient, repo, logger)

	var forecastFetcher controller.ForecastFetcher
	var forecastService *service.ForecastService
	if forecasts != nil {
		forecastService = service.NewForecastService(kmaClient, forecasts, logger)
		forecastFetcher = forecastService
	}

	opts := routes.Options{
		Measurements:  controller.NewMeasurementController(measurementService, logger),
		KMA:           controller.NewKMAController(forecastFetcher, observationService, logger),
		Locations:     controller.NewLocationController(repo, influx, logger),
		RequestLogger: middleware.RequestLogger(logger),
		IPRateLimit:   middleware.IPRateLimit(limiter, cfg.IPLimitPerMinute, logger),
		Metrics:       promhttp.Handler(),
	}
	if keys != nil {
		opts.APIKeyAuth = middleware.APIKeyAuth(keys, limiter, logger)
	}
	if cfg.AuthEnabled() {
		if opts.RequireJWT, err = middleware.EnsureValidToken(cfg.Auth0Issuer, cfg.Auth0Audience, logger); err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("AUTH0_ISSUER/AUTH0_AUDIENCE not set: ingest endpoints are unprotected")
	}

	if cfg.KMAAuthKey != "" {
		logger.Info().Str("auth_key", utils.Mask(cfg.KMAAuthKey)).Str("station", kmaClient.Station()).Msg("KMA ingest enabled")
		sched := service.NewScheduler(logger)
		if err := observationService.Schedule(sched); err != nil {
			return err
		}
		if forecastService != nil {
			if err := forecastService.Schedule(sched); err != nil {
				return err
			}
		}
		go backfillObservations(ctx, observationService, cfg.KMAInitDays, logger)
		go sched.Run(ctx)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.APIKeyHeader},
		AllowCredentials: true,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(routes.SetupRouter(opts)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// backfillObservations loads the last days of observations once at startup.
func backfillObservations(ctx context.Context, svc *service.ObservationService, days int, logger zerolog.Logger) {
	if days <= 0 {
		return
	}
	n, err := svc.Backfill(ctx, time.Now(), days)
	if err != nil {
		logger.Error().Err(err).Int("saved", n).Msg("observation backfill failed")
		return
	}
	logger.Info().Int("days", days).Int("saved", n).Msg("observation backfill done")
}
