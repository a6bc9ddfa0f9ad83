package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"screener/internal/platform/config"
	"screener/internal/platform/httpserver"
	"screener/internal/platform/logger"
	redisclient "screener/internal/platform/redis"
	"screener/internal/screening/cache"
	"screener/internal/screening/events"
	screeningHandler "screener/internal/screening/handler"
	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/orchestrator"
	"screener/internal/screening/report"
	"screener/internal/screening/risk"
	"screener/internal/screening/service"
	"screener/internal/screening/store"
	"screener/pkg/platform/circuit"
	"screener/pkg/platform/httputil"
	"screener/pkg/platform/middleware/metadata"
	"screener/pkg/platform/middleware/request"
	"screener/pkg/platform/middleware/requesttime"
	"screener/pkg/platform/ratelimit"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/screening.
func main() {
	cfg, warnings := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	for _, w := range warnings {
		log.Warn("config", "warning", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	lookupCache, rdb, err := buildCache(ctx, cfg)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	repo, db, err := buildRepository(ctx, cfg)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	publisher, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	registry, err := buildRegistry(cfg.Sources, cfg.Screening.ConnectorTimeout)
	if err != nil {
		log.Error("invalid source configuration", "error", err)
		os.Exit(1)
	}
	if len(registry.All()) == 0 {
		log.Warn("no sources configured; every screening will fail")
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
		orchestrator.WithTTLPolicy(ttlPolicy(cfg.Cache)),
		orchestrator.WithTopN(cfg.Screening.TopN),
		orchestrator.WithTimeout(cfg.Screening.ConnectorTimeout),
		orchestrator.WithMaxConcurrency(cfg.Screening.MaxConcurrency),
		orchestrator.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Circuit.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Circuit.SuccessThreshold),
			circuit.WithCooldown(cfg.Circuit.Cooldown),
		),
	}
	if cfg.Screening.SourceRateLimit > 0 {
		orchOpts = append(orchOpts, orchestrator.WithRateLimiter(
			ratelimit.New(cfg.Screening.SourceRateLimit, cfg.Screening.SourceRateWindow)))
	}
	orch := orchestrator.New(registry, lookupCache, orchOpts...)
	assembler, err := report.New(repo, report.WithLogger(log))
	if err != nil {
		log.Error("report assembler", "error", err)
		os.Exit(1)
	}
	svc, err := service.New(orch, assembler,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithPublisher(publisher),
		service.WithDefaultThreshold(cfg.Screening.DefaultThreshold),
		service.WithRiskPolicy(risk.Policy{
			Critical: cfg.Screening.RiskCritical,
			High:     cfg.Screening.RiskHigh,
			Medium:   cfg.Screening.RiskMedium,
		}),
	)
	if err != nil {
		log.Error("screening service", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", healthHandler(db, rdb))
	screeningHandler.New(svc, log, m).Register(r)

	// Screenings wait on the slowest connector, so the write deadline
	// follows the connector timeout.
	srv := httpserver.New(cfg.Addr, r, cfg.Screening.ConnectorTimeout+10*time.Second)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting screener", "addr", cfg.Addr, "sources", len(registry.All()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func buildCache(ctx context.Context, cfg config.Server) (cache.Store, *redisclient.Client, error) {
	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return cache.NewInMemory(), nil, nil
	}
	return cache.NewRedisStore(rdb.Client), rdb, nil
}

func buildRepository(ctx context.Context, cfg config.Server) (report.Repository, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemory(), nil, nil
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), db, nil
}

type reportPublisher interface {
	service.EventPublisher
	Close()
}

func buildPublisher(ctx context.Context, cfg config.Server, log *slog.Logger) (reportPublisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Noop{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, events.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := p.EnsureTopic(ctx, 3, 1); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func ttlPolicy(c config.CacheConfig) cache.TTLPolicy {
	p := cache.DefaultTTLPolicy()
	p.Positive[models.FamilySanctions] = c.SanctionsTTL
	p.Positive[models.FamilyRegistry] = c.RegistryTTL
	p.Positive[models.FamilyIdentifier] = c.IdentifierTTL
	p.Negative[models.FamilySanctions] = c.SanctionsNegativeTTL
	p.Negative[models.FamilyRegistry] = c.RegistryNegativeTTL
	p.Negative[models.FamilyIdentifier] = c.IdentifierNegativeTTL
	return p
}

func healthHandler(db *sql.DB, rdb *redisclient.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				status["redis"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	}
}
