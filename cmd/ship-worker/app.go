package main

import (
	"context"
	"fmt"
	"time"

	"github.com/BearBump/ShipDesk/config"
	"github.com/BearBump/ShipDesk/internal/broker/kafka"
	"github.com/BearBump/ShipDesk/internal/cache/rediscache"
	"github.com/BearBump/ShipDesk/internal/services/progress"
	"github.com/BearBump/ShipDesk/internal/storage/pgship"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo progress.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) progress.Producer
	newRateLimiter func(cfg *config.Config) progress.RateLimiter
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (progress.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgship.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) progress.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) progress.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
	}
}

func plannerConfigFrom(cfg *config.Config) progress.PlannerConfig {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return progress.PlannerConfig{
		PendingDelay:        sec(cfg.ShipDesk.WorkerPendingDelaySeconds),
		PickedUpDelay:       sec(cfg.ShipDesk.WorkerPickedUpDelaySeconds),
		InTransitMinDelay:   sec(cfg.ShipDesk.WorkerInTransitMinDelaySeconds),
		InTransitMaxDelay:   sec(cfg.ShipDesk.WorkerInTransitMaxDelaySeconds),
		OutForDeliveryDelay: sec(cfg.ShipDesk.WorkerOutForDeliveryDelaySeconds),
	}
}

func newPollerFromConfig(cfg *config.Config, repo progress.Repository, producer progress.Producer, rl progress.RateLimiter) *progress.Poller {
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "shipment.status_changed"
	}

	pollInterval := time.Duration(cfg.ShipDesk.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	batchSize := cfg.ShipDesk.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.ShipDesk.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	lease := time.Duration(cfg.ShipDesk.WorkerLeaseSeconds) * time.Second
	if lease <= 0 {
		lease = 120 * time.Second
	}
	rlPerMin := int64(cfg.ShipDesk.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 600
	}

	return progress.New(repo, producer, rl, topic).
		WithSettings(pollInterval, batchSize, concurrency, lease, rlPerMin).
		WithPlanner(plannerConfigFrom(cfg))
}

func RunShipWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	p := newPollerFromConfig(cfg, repo, f.newProducer(cfg), f.newRateLimiter(cfg))

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.ShipDesk.WorkerHTTPAddr,
			poller:   p,
			cfg:      cfg,
		})
	}()

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- p.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-pollErr:
		return err
	case err := <-httpErr:
		return err
	}
}
