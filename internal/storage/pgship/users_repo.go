package pgship

import (
	"context"
	stderrors "errors"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO users (id, email, full_name, phone, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, u.ID, u.Email, u.FullName, u.Phone, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateUser
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Storage) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, `
SELECT id, email, full_name, phone, password_hash, created_at
FROM users
`+where, arg).Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return &u, nil
}
