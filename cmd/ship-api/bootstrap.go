package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipDesk/config"
	"github.com/BearBump/ShipDesk/internal/api/shipdesk_api"
	"github.com/BearBump/ShipDesk/internal/broker/kafka"
	"github.com/BearBump/ShipDesk/internal/cache/rediscache"
	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/BearBump/ShipDesk/internal/payments/gatewayhttp"
	"github.com/BearBump/ShipDesk/internal/payments/simulated"
	"github.com/BearBump/ShipDesk/internal/services/identity"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/services/tracking"
	"github.com/BearBump/ShipDesk/internal/storage/pgship"
)

type shipAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     shipAPIOpts
	api      *shipdesk_api.ShipDeskAPI
	shSvc    *shipments.Service
	consumer *kafka.Consumer
	closeDB  func()
}

func mustBootstrapShipAPI() *shipAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.ShipDesk.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ShipDesk.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "ship-api"
	}
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "shipment.status_changed"
	}

	sessionTTL := time.Duration(cfg.ShipDesk.SessionTTLSeconds) * time.Second
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	draftTTL := time.Duration(cfg.ShipDesk.DraftTTLSeconds) * time.Second
	if draftTTL <= 0 {
		draftTTL = 15 * time.Minute
	}
	cacheTTL := time.Duration(cfg.ShipDesk.TrackingCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	firstCheck := time.Duration(cfg.ShipDesk.WorkerFirstCheckSeconds) * time.Second
	if firstCheck <= 0 {
		firstCheck = 5 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	sessions := rediscache.NewSessions(redisAddr, sessionTTL)
	limiter := rediscache.NewRateLimiter(redisAddr)

	idSvc := identity.New(st, sessions, limiter, int64(cfg.ShipDesk.LoginRateLimitPerMinute))
	shSvc := shipments.New(st, newPaymentProvider(cfg), rc, rc, draftTTL, firstCheck)
	trSvc := tracking.New(st, rc, cacheTTL)

	api := shipdesk_api.New(idSvc, shSvc, trSvc, st.Ping)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &shipAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: shipAPIOpts{
			httpAddr:      httpAddr,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		api:      api,
		shSvc:    shSvc,
		consumer: consumer,
		closeDB:  st.Close,
	}
}

func newPaymentProvider(cfg *config.Config) payments.Provider {
	if cfg.ShipDesk.PaymentProviderMode == "gateway" && cfg.ShipDesk.PaymentGatewayBaseURL != "" {
		return gatewayhttp.New(cfg.ShipDesk.PaymentGatewayBaseURL, cfg.ShipDesk.PaymentGatewayAPIKey)
	}
	return simulated.New(time.Duration(cfg.ShipDesk.PaymentSimulatedDelayMs) * time.Millisecond)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgship.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgship.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *shipAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *shipAPIApp) Run() error {
	return runShipAPI(a.ctx, a.opts, a.api, a.shSvc, a.consumer)
}
