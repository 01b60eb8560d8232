package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/weather-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-alert-service/internal/adapter/mail"
	"github.com/couchcryptid/weather-alert-service/internal/adapter/weatherapi"
	"github.com/couchcryptid/weather-alert-service/internal/config"
	"github.com/couchcryptid/weather-alert-service/internal/dispatch"
	"github.com/couchcryptid/weather-alert-service/internal/observability"
	"github.com/couchcryptid/weather-alert-service/internal/pipeline"
	"github.com/couchcryptid/weather-alert-service/internal/queue"
	"github.com/couchcryptid/weather-alert-service/internal/scheduler"
	"github.com/couchcryptid/weather-alert-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	st, err := store.Open(cfg.DBPath, clock)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	// Forecast provider (feature-flagged via WEATHER_ENABLED / WEATHER_API_KEY).
	var provider pipeline.ForecastProvider
	if cfg.WeatherEnabled {
		client := weatherapi.NewClient(cfg.WeatherAPIBase, cfg.WeatherAPIKey, cfg.WeatherTimeout, logger)
		provider = weatherapi.NewCachedProvider(client, cfg.ForecastCacheTTL, clock)
		logger.Info("weather provider enabled", "base", cfg.WeatherAPIBase, "cache_ttl", cfg.ForecastCacheTTL)
	} else {
		provider = weatherapi.Disabled{}
		logger.Info("weather provider disabled")
	}

	// Mail delivery (feature-flagged via SMTP_HOST).
	var sender dispatch.Sender
	if cfg.SMTPEnabled {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, logger)
		logger.Info("smtp delivery enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		sender = mail.NewLogSender(logger)
		logger.Info("smtp delivery disabled")
	}

	// Kafka audit trail (feature-flagged via KAFKA_BROKERS).
	var audit dispatch.AuditWriter
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		audit = kafkaWriter
		logger.Info("kafka audit trail enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka audit trail disabled")
	}

	dispatcher := dispatch.New(sender, st, st, audit, clock, logger, metrics)
	q := queue.New(dispatcher, clock, logger)

	// Apply the persisted approval mode before the first cycle.
	if settings, err := st.GetSettings(context.Background()); err == nil {
		q.SetAutoApprove(settings.AutoApproval)
	} else {
		logger.Warn("failed to load settings at startup", "error", err)
	}

	p := pipeline.New(st, st, provider, st, st, q, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, st, q, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the cron scheduler only when forecasts can actually be fetched;
	// manual checks via the API remain available either way.
	var sched *scheduler.Scheduler
	if cfg.WeatherEnabled {
		sched, err = scheduler.New(cfg.CheckSchedule, p, logger, metrics)
		if err != nil {
			logger.Error("failed to create scheduler", "error", err)
			os.Exit(1)
		}
		sched.Start()
		logger.Info("check schedule active", "spec", cfg.CheckSchedule)
	} else {
		logger.Info("scheduler disabled, weather provider not configured")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Error("scheduler stop error", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
