package pgship

import (
	"context"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const shipmentColumns = `
  id, user_id, tracking_number,
  sender_name, sender_address, sender_phone,
  receiver_name, receiver_address, receiver_phone,
  package_weight, package_dimensions, service_type,
  status, estimated_delivery, cost, payment_status,
  next_check_at, created_at, updated_at`

// StatusChange is one applied lifecycle step: the shipment moves to Status
// and the derived event is appended, atomically.
type StatusChange struct {
	ShipmentID string

	Status     string
	OccurredAt time.Time

	NextCheckAt time.Time

	Event *models.TrackingEvent
}

// CreateShipment persists a confirmed shipment together with its initial
// tracking event in one transaction. This is the booking commit point.
func (s *Storage) CreateShipment(ctx context.Context, sh *models.Shipment, ev *models.TrackingEvent) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO shipments (`+shipmentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`,
		sh.ID, sh.UserID, sh.TrackingNumber,
		sh.SenderName, sh.SenderAddress, sh.SenderPhone,
		sh.ReceiverName, sh.ReceiverAddress, sh.ReceiverPhone,
		sh.PackageWeight, sh.PackageDimensions, sh.ServiceType,
		sh.Status, sh.EstimatedDelivery.UTC(), sh.Cost, sh.PaymentStatus,
		sh.NextCheckAt.UTC(), sh.CreatedAt.UTC(), sh.UpdatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "insert shipment")
	}

	if ev != nil {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

func (s *Storage) GetShipmentByID(ctx context.Context, id string) (*models.Shipment, error) {
	return s.getShipment(ctx, `WHERE id = $1`, id)
}

func (s *Storage) GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	return s.getShipment(ctx, `WHERE tracking_number = $1`, trackingNumber)
}

func (s *Storage) getShipment(ctx context.Context, where string, arg any) (*models.Shipment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments `+where, arg)
	sh, err := scanShipment(row)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) ListShipmentsByUser(ctx context.Context, userID string) ([]*models.Shipment, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	out := []*models.Shipment{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApplyStatusChange moves the shipment to the new status and appends the
// derived tracking event in one transaction.
func (s *Storage) ApplyStatusChange(ctx context.Context, ch StatusChange) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE shipments
SET
  status = $2,
  next_check_at = $3,
  updated_at = $4
WHERE id = $1
`, ch.ShipmentID, ch.Status, ch.NextCheckAt.UTC(), ch.OccurredAt.UTC())
	if err != nil {
		return errors.Wrap(err, "update shipment status")
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if ch.Event != nil {
		if err := insertEvent(ctx, tx, ch.Event); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// ClaimDueShipments picks a batch of paid, non-terminal shipments that are
// due for a progression step and leases them so concurrent workers do not
// re-claim them. Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE next_check_at <= $1
  AND payment_status = $2
  AND status NOT IN ($3, $4)
ORDER BY next_check_at ASC
LIMIT $5
FOR UPDATE SKIP LOCKED
`, now.UTC(), models.PaymentPaid, models.StatusDelivered, models.StatusCancelled, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due shipments")
	}
	defer rows.Close()

	var picked []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due shipment")
		}
		picked = append(picked, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, sh := range picked {
		_, err := tx.Exec(ctx, `UPDATE shipments SET next_check_at = $2, updated_at = now() WHERE id = $1`, sh.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease shipment")
		}
		sh.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

func scanShipment(row pgx.Row) (*models.Shipment, error) {
	var sh models.Shipment
	err := row.Scan(
		&sh.ID, &sh.UserID, &sh.TrackingNumber,
		&sh.SenderName, &sh.SenderAddress, &sh.SenderPhone,
		&sh.ReceiverName, &sh.ReceiverAddress, &sh.ReceiverPhone,
		&sh.PackageWeight, &sh.PackageDimensions, &sh.ServiceType,
		&sh.Status, &sh.EstimatedDelivery, &sh.Cost, &sh.PaymentStatus,
		&sh.NextCheckAt, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
