package auth_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/internal/fixtures"
	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/user"
	"github.com/abensaid/lendify/pkg/service/auth"
)

func newService(t *testing.T) (*auth.Service, *user.User) {
	t.Helper()
	uow := fixtures.NewUoW()
	u, err := user.New("aisha", "aisha@example.com", "s3cret-pass")
	require.NoError(t, err)
	uow.SeedUser(u)
	cfg := &config.Jwt{Secret: "test-secret", Expiry: time.Hour}
	return auth.New(uow, cfg, slog.New(slog.DiscardHandler)), u
}

func TestLogin_ByEmailAndUsername(t *testing.T) {
	svc, seeded := newService(t)
	ctx := context.Background()

	u, err := svc.Login(ctx, "aisha@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)

	u, err = svc.Login(ctx, "aisha", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)
}

func TestLogin_Failures(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, "aisha", "wrong")
	assert.ErrorIs(t, err, domain.ErrUserUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, domain.ErrUserUnauthorized)
}

func TestGenerateToken_RoundTrip(t *testing.T) {
	svc, seeded := newService(t)

	signed, err := svc.GenerateToken(seeded)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	id, err := auth.CurrentUserID(token)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, id)
	assert.Equal(t, user.RoleCustomer, auth.CurrentRole(token))
}

func TestCurrentUserID_MissingClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"})
	_, err := auth.CurrentUserID(token)
	assert.ErrorIs(t, err, domain.ErrUserUnauthorized)
}
