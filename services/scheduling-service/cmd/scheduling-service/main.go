package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rollcall-app/rollcall/libs/config"
	"github.com/rollcall-app/rollcall/libs/db"
	"github.com/rollcall-app/rollcall/libs/httpx"
	"github.com/rollcall-app/rollcall/libs/kafkax"
	otelx "github.com/rollcall-app/rollcall/libs/otel"
	"github.com/rollcall-app/rollcall/libs/runtime"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/consumer"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/handlers"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/inbox"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/outbox"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/parser"
	"github.com/rollcall-app/rollcall/services/scheduling-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	parserProvider, err := parser.NewProvider(config.String("PARSER_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("parser provider init failed; free text disabled", "err", err)
		parserProvider = nil
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		logger.Info("overlap cache enabled (redis)", "redis_addr", addr)
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	startConsumer := func(topic string, handler consumer.Handler) {
		if strings.TrimSpace(topic) == "" {
			return
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
			Topic:   topic,
		}, handler)
		go eventConsumer.Run(ctx)
	}
	if strings.TrimSpace(config.String("KAFKA_BROKERS", "")) != "" {
		startConsumer(consumer.TopicAvailabilityParsed, consumer.NewParsedAvailabilityHandler(repo, logger))
		startConsumer(consumer.TopicEntitlementsUpdated, consumer.NewEntitlementsHandler(repo, logger))
	}

	tokenTTL := time.Duration(config.Int("TOKEN_TTL_HOURS", 720)) * time.Hour
	cacheTTL := time.Duration(config.Int("OVERLAP_CACHE_TTL_MINUTES", 10)) * time.Minute

	campaignHandler := handlers.NewCampaignHandler(repo, outboxRepo, logger, jwtSecret, tokenTTL)
	availabilityHandler := handlers.NewAvailabilityHandler(repo, outboxRepo, logger, parserProvider, jwtSecret)
	overlapHandler := handlers.NewOverlapHandler(repo, logger, rdb, cacheTTL, jwtSecret)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/campaigns", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			campaignHandler.Create(w, r)
		case http.MethodGet:
			campaignHandler.Get(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/campaigns/join", campaignHandler.Join)
	mux.HandleFunc("/api/v1/campaigns/overlap", overlapHandler.Get)
	mux.HandleFunc("/api/v1/availability/patterns", availabilityHandler.Patterns)
	mux.HandleFunc("/api/v1/availability/slots", availabilityHandler.Slot)
	mux.HandleFunc("/api/v1/availability/exceptions", availabilityHandler.Exception)
	mux.HandleFunc("/api/v1/availability/freetext", availabilityHandler.FreeText)
	mux.HandleFunc("/api/v1/availability/resolved", availabilityHandler.Resolved)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(15 * time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
		}),
	}
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware())
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
