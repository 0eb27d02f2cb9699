package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/ShipDesk/config"
	"github.com/BearBump/ShipDesk/internal/services/progress"
	"github.com/go-chi/chi/v5"
)

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	poller *progress.Poller
	cfg    *config.Config
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.poller == nil {
			_, _ = w.Write([]byte(`{"error":"poller not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.poller.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Avoid dumping secrets; show only operational worker settings.
		out := map[string]any{
			"pollIntervalSeconds":             opts.cfg.ShipDesk.WorkerPollIntervalSeconds,
			"batchSize":                       opts.cfg.ShipDesk.WorkerBatchSize,
			"concurrency":                     opts.cfg.ShipDesk.WorkerConcurrency,
			"leaseSeconds":                    opts.cfg.ShipDesk.WorkerLeaseSeconds,
			"rateLimitPerMinute":              opts.cfg.ShipDesk.WorkerRateLimitPerMinute,
			"pendingDelaySeconds":             opts.cfg.ShipDesk.WorkerPendingDelaySeconds,
			"pickedUpDelaySeconds":            opts.cfg.ShipDesk.WorkerPickedUpDelaySeconds,
			"inTransitMinDelaySeconds":        opts.cfg.ShipDesk.WorkerInTransitMinDelaySeconds,
			"inTransitMaxDelaySeconds":        opts.cfg.ShipDesk.WorkerInTransitMaxDelaySeconds,
			"outForDeliveryDelaySeconds":      opts.cfg.ShipDesk.WorkerOutForDeliveryDelaySeconds,
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.poller == nil {
			_, _ = w.Write([]byte(`{"error":"poller not wired"}`))
			return
		}
		opts.poller.Trigger()
		_, _ = w.Write([]byte(`{"triggered":true}`))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
