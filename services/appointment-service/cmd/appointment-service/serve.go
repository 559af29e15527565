package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicdesk/libs/config"
	"github.com/md-rashed-zaman/clinicdesk/libs/db"
	"github.com/md-rashed-zaman/clinicdesk/libs/grpcx"
	"github.com/md-rashed-zaman/clinicdesk/libs/httpx"
	"github.com/md-rashed-zaman/clinicdesk/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicdesk/libs/otel"
	"github.com/md-rashed-zaman/clinicdesk/libs/runtime"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/booking"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/followup"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/inbox"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicdesk/services/appointment-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type serveConfig struct {
	service           string
	port              string
	grpcPort          string
	databaseURL       string
	dbMaxConns        int
	kafkaBrokers      string
	kafkaGroupID      string
	clinicLocation    *time.Location
	followUpLookahead int
	rateLimit         int
	redisAddr         string
	redisDB           int
	rateLimitFail     bool
	corsOrigins       []string
	bodyLimit         int64
	requestTimeout    time.Duration
}

func loadServeConfig() (serveConfig, error) {
	cfg := serveConfig{
		service:      config.String("SERVICE_NAME", "appointment-service"),
		kafkaBrokers: config.String("KAFKA_BROKERS", ""),
		kafkaGroupID: config.String("KAFKA_GROUP_ID", "appointment-service-followups"),
		redisAddr:    strings.TrimSpace(config.String("REDIS_ADDR", "")),
		corsOrigins:  splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
	}
	var err error
	if cfg.port, err = config.Port("PORT", "8083"); err != nil {
		return cfg, err
	}
	if cfg.grpcPort, err = config.Port("GRPC_PORT", "9093"); err != nil {
		return cfg, err
	}
	if cfg.databaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return cfg, err
	}
	if cfg.dbMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		return cfg, err
	}
	if cfg.clinicLocation, err = config.Location("CLINIC_TIMEZONE", "UTC"); err != nil {
		return cfg, err
	}
	if cfg.followUpLookahead, err = config.Int("FOLLOWUP_LOOKAHEAD_DAYS", 30); err != nil {
		return cfg, err
	}
	if cfg.rateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return cfg, err
	}
	if cfg.redisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return cfg, err
	}
	if cfg.rateLimitFail, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true); err != nil {
		return cfg, err
	}
	bodyLimit, err := config.Int("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return cfg, err
	}
	cfg.bodyLimit = int64(bodyLimit)
	if cfg.requestTimeout, err = config.Duration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, gRPC health server, outbox publisher and follow-up consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg serveConfig) error {
	logger := runtime.NewLogger(cfg.service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.OpenWithOptions(ctx, cfg.databaseURL, db.PoolOptions{MaxConns: int32(cfg.dbMaxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository()
	providers := storage.NewProviderRepository(pool)
	appointments := storage.NewAppointmentRepository(pool)

	bookings := booking.NewService(storage.NewStore(pool, outboxRepo), logger)
	scheduler := scheduling.NewService(providers, appointments, scheduling.Options{Location: cfg.clinicLocation})

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   cfg.kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if strings.TrimSpace(cfg.kafkaBrokers) != "" {
		followUps := followup.NewScheduler(scheduler, bookings, logger, followup.SchedulerConfig{
			LookaheadDays: cfg.followUpLookahead,
		})
		consumer := followup.NewConsumer(logger, inbox.NewRepository(pool), followUps, followup.ConsumerConfig{
			Brokers: cfg.kafkaBrokers,
			GroupID: cfg.kafkaGroupID,
		})
		go consumer.Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKERS not set; follow-up consumer disabled")
	}

	grpcServer := grpcx.NewServer(logger)
	health := grpcx.RegisterHealth(grpcServer, cfg.service)
	grpcLis, err := net.Listen("tcp", ":"+cfg.grpcPort)
	if err != nil {
		return err
	}
	go func() {
		logger.Info("grpc server starting", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.kafkaBrokers)},
	)
	handlers.NewAppointmentHandler(scheduler, bookings, appointments, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-Id", handlers.ClinicHeader},
			MaxAge:         10 * time.Minute,
		}),
		rateLimitMiddleware(cfg, logger),
		httpx.WithBodyLimit(cfg.bodyLimit),
		httpx.WithTimeout(cfg.requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "appointments")
	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()
	health.SetServingStatus(cfg.service, healthpb.HealthCheckResponse_SERVING)

	<-ctx.Done()
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcServer.GracefulStop()
	logger.Info("servers stopped")
	return nil
}

// rateLimitMiddleware shares the limit across replicas through Redis when REDIS_ADDR is set.
func rateLimitMiddleware(cfg serveConfig, logger *slog.Logger) httpx.Middleware {
	if cfg.redisAddr == "" {
		return httpx.NewRateLimiter(cfg.rateLimit, time.Minute).Middleware()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.redisAddr,
		Password:     config.String("REDIS_PASSWORD", ""),
		DB:           cfg.redisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	rl := httpx.NewRedisRateLimiter(rdb, cfg.rateLimit, time.Minute, config.String("RATE_LIMIT_PREFIX", "appt-rl"))
	return rl.Middleware(logger, cfg.rateLimitFail)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
