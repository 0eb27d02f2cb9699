package identity

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/storage/memship"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	m   map[string]string
	seq int
}

func newFakeSessions() *fakeSessions { return &fakeSessions{m: map[string]string{}} }

func (f *fakeSessions) Create(ctx context.Context, userID string) (string, error) {
	f.seq++
	token := "tok-" + userID + "-" + string(rune('a'+f.seq))
	f.m[token] = userID
	return token, nil
}
func (f *fakeSessions) Get(ctx context.Context, token string) (string, bool, error) {
	uid, ok := f.m[token]
	return uid, ok, nil
}
func (f *fakeSessions) Delete(ctx context.Context, token string) error {
	delete(f.m, token)
	return nil
}

type denyLimiter struct{ allowed bool }

func (l denyLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return l.allowed, 0, nil
}

func TestSignUp_LoginFlow(t *testing.T) {
	ctx := context.Background()
	repo := memship.New()
	sessions := newFakeSessions()
	svc := New(repo, sessions, nil, 0)

	u, token, err := svc.SignUp(ctx, SignupInput{
		Email: "alice@example.com", Password: "secret1", FullName: "Alice A", Phone: "+1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.NotEmpty(t, token)
	require.NotEqual(t, "secret1", u.PasswordHash)

	// session is live
	got, ok, err := svc.CurrentSession(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u.ID, got.ID)

	// wrong password is rejected even though the email matches
	_, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	// right password works
	got2, token2, err := svc.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, u.ID, got2.ID)
	require.NotEmpty(t, token2)

	// logout is idempotent
	require.NoError(t, svc.Logout(ctx, token2))
	require.NoError(t, svc.Logout(ctx, token2))
	_, ok, err = svc.CurrentSession(ctx, token2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := memship.New()
	svc := New(repo, newFakeSessions(), nil, 0)

	_, _, err := svc.SignUp(ctx, SignupInput{Email: "a@b.c", Password: "secret1", FullName: "A"})
	require.NoError(t, err)

	_, _, err = svc.SignUp(ctx, SignupInput{Email: "a@b.c", Password: "secret2", FullName: "B"})
	require.ErrorIs(t, err, models.ErrDuplicateUser)

	// no second record was created
	u, err := repo.GetUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "A", u.FullName)
}

func TestSignUp_Validation(t *testing.T) {
	svc := New(memship.New(), newFakeSessions(), nil, 0)
	ctx := context.Background()

	var vErr *models.ValidationError

	_, _, err := svc.SignUp(ctx, SignupInput{Email: "not-an-email", Password: "secret1", FullName: "A"})
	require.ErrorAs(t, err, &vErr)

	_, _, err = svc.SignUp(ctx, SignupInput{Email: "a@b.c", Password: "short", FullName: "A"})
	require.ErrorAs(t, err, &vErr)

	_, _, err = svc.SignUp(ctx, SignupInput{Email: "a@b.c", Password: "secret1", FullName: "  "})
	require.ErrorAs(t, err, &vErr)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := New(memship.New(), newFakeSessions(), nil, 0)
	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_RateLimited(t *testing.T) {
	ctx := context.Background()
	repo := memship.New()
	svc := New(repo, newFakeSessions(), denyLimiter{allowed: false}, 5)

	_, _, err := svc.Login(ctx, "alice@example.com", "secret1")
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
}
