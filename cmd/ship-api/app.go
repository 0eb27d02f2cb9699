package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/ShipDesk/internal/api/shipdesk_api"
	"github.com/BearBump/ShipDesk/internal/broker/messages"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/pkg/errors"
)

type shipAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runShipAPI(ctx context.Context, opts shipAPIOpts, api *shipdesk_api.ShipDeskAPI, shSvc *shipments.Service, consumer kafkaConsumer) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: api.Router()}
	httpErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", lis.Addr().String())
		httpErr <- srv.Serve(lis)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		if err := consumer.Consume(ctx, func(_key, value []byte) error {
			return applyStatusMessage(ctx, shSvc, value)
		}); err != nil && ctx.Err() == nil {
			slog.Error("kafka consumer stopped", "error", err.Error())
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	}
}

// applyStatusMessage applies one worker message to the shipment. Malformed
// payloads, unknown shipments and transitions that became illegal (the owner
// cancelled while the advance was in flight) are not retryable: redelivering
// them would stall the consumer on the same message forever, so they are
// logged and committed away. Everything else propagates and keeps the
// message uncommitted.
func applyStatusMessage(ctx context.Context, shSvc *shipments.Service, value []byte) error {
	var m messages.ShipmentStatusChanged
	if err := json.Unmarshal(value, &m); err != nil {
		slog.Warn("skip malformed status message", "error", err.Error())
		return nil
	}

	err := shSvc.ApplyStatusChanged(ctx, m)
	var tErr *models.TransitionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tErr), errors.Is(err, models.ErrNotFound):
		slog.Warn("skip stale status message",
			"shipment_id", m.ShipmentID, "status", m.Status, "error", err.Error())
		return nil
	default:
		return err
	}
}
