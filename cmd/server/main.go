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

	"github.com/honeynil/VitabuPayments/internal/api"
	"github.com/honeynil/VitabuPayments/internal/config"
	"github.com/honeynil/VitabuPayments/internal/handler"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/auth"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/kafka"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/zenopay"
	"github.com/honeynil/VitabuPayments/internal/observability"
	core "github.com/honeynil/VitabuPayments/internal/repository/postgres"
	service "github.com/honeynil/VitabuPayments/internal/services"
	_ "github.com/lib/pq"
)

const (
	serviceName = "vitabu-payments"
	tokenTTL    = 24 * time.Hour

	pollDrainTimeout = 30 * time.Second
)

func main() {
	// Загружаем конфиг (.env + переменные окружения)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем логи, метрики, трейсы
	shutdown := observability.Setup(ctx, serviceName, cfg.LogLevel)
	defer shutdown(context.Background())

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if err := core.Migrate(ctx, db); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	store := core.NewStore(db)

	// Redis: кэш балансов, блокировки опроса, отозванные токены
	var redisClient redis.RedisClient
	if cfg.RedisAddr != "" {
		client, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		redisClient = client
	} else {
		slog.Warn("REDIS_ADDR is not set, using in-process cache")
		redisClient = redis.NewMemoryClient()
	}
	defer redisClient.Close()

	// Kafka: события балансов и платежей
	var producer kafka.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewProducer(cfg.KafkaBrokers)
		producer = p
		defer p.Close()

		consumer := kafka.NewConsumer(cfg.KafkaBrokers, serviceName+"-cache", redisClient)
		go consumer.Consume(ctx)
		defer consumer.Close()
	} else {
		slog.Warn("KAFKA_BROKER is not set, events will not be published")
	}

	// Инициализируем сервисы
	events := service.NewEventPublisher(producer, redisClient)
	settler := service.NewSettler(store, events)
	gateway := zenopay.NewClient(zenopay.Config{
		BaseURL:    cfg.Zenopay.BaseURL,
		APIKey:     cfg.Zenopay.APIKey,
		WebhookURL: cfg.Zenopay.WebhookURL,
	})
	checker := service.NewStatusChecker(store, gateway, settler)
	pollCfg := service.DefaultPollConfig()
	pollCfg.Budget = cfg.PollBudget
	poller := service.NewPoller(checker, redisClient, pollCfg)

	h := handler.NewHandler(
		service.NewPaymentService(store, gateway, poller, events),
		service.NewWithdrawalService(store, events),
		service.NewAccountService(store, redisClient),
		service.NewReconciler(store, settler, cfg.Zenopay.WebhookSecret),
		checker,
	)
	authenticator := auth.NewAuthenticator(auth.NewTokenManager(cfg.JWTSecret, tokenTTL), redisClient)

	// Запускаем сервер
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRouter(h, authenticator),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	cancel()

	// Ждём фоновые опросы, но не дольше pollDrainTimeout
	done := make(chan struct{})
	go func() {
		poller.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(pollDrainTimeout):
		slog.Warn("status polls still running at shutdown, records stay pending")
	}
	slog.Info("server stopped")
}
