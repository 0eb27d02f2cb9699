package pgship

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE (email)
)`,
		`
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  tracking_number TEXT NOT NULL,
  sender_name TEXT NOT NULL,
  sender_address TEXT NOT NULL DEFAULT '',
  sender_phone TEXT NOT NULL DEFAULT '',
  receiver_name TEXT NOT NULL,
  receiver_address TEXT NOT NULL DEFAULT '',
  receiver_phone TEXT NOT NULL DEFAULT '',
  package_weight DOUBLE PRECISION NOT NULL,
  package_dimensions TEXT NOT NULL DEFAULT '',
  service_type TEXT NOT NULL,
  status TEXT NOT NULL,
  estimated_delivery TIMESTAMPTZ NOT NULL,
  cost BIGINT NOT NULL,
  payment_status TEXT NOT NULL,
  next_check_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (tracking_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_user_id_created_at ON shipments(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_next_check_at ON shipments(next_check_at)`,
		`
CREATE TABLE IF NOT EXISTS tracking_events (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  event_time TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_shipment_id_event_time ON tracking_events(shipment_id, event_time DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
