package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStore keeps token -> userID with a TTL.
type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Get(ctx context.Context, token string) (string, bool, error)
	Delete(ctx context.Context, token string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Service struct {
	repo     Repository
	sessions SessionStore
	rl       RateLimiter

	loginLimitPerMinute int64
}

func New(repo Repository, sessions SessionStore, rl RateLimiter, loginLimitPerMinute int64) *Service {
	if loginLimitPerMinute <= 0 {
		loginLimitPerMinute = 10
	}
	return &Service{repo: repo, sessions: sessions, rl: rl, loginLimitPerMinute: loginLimitPerMinute}
}

type SignupInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// SignUp creates the user, hashes the password, and opens a session.
func (s *Service) SignUp(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, "", &models.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(in.Password) < 6 {
		return nil, "", &models.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, "", &models.ValidationError{Field: "fullName", Reason: "is required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies the password against the stored bcrypt hash. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", models.ErrInvalidCredentials
	}

	if s.rl != nil {
		key := fmt.Sprintf("rl:login:%s:%s", email, time.Now().UTC().Format("200601021504"))
		allowed, _, err := s.rl.Allow(ctx, key, s.loginLimitPerMinute, 70*time.Second)
		if err == nil && !allowed {
			return nil, "", &models.ValidationError{Field: "email", Reason: "too many login attempts, try again later"}
		}
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err == models.ErrNotFound {
		return nil, "", models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout drops the session; idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// CurrentSession resolves the token to its user, ok=false when the token is
// unknown or expired.
func (s *Service) CurrentSession(ctx context.Context, token string) (*models.User, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	userID, ok, err := s.sessions.Get(ctx, token)
	if err != nil || !ok {
		return nil, false, err
	}
	u, err := s.repo.GetUserByID(ctx, userID)
	if err == models.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
