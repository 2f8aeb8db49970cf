package auth

import (
	"context"
	"testing"

	"github.com/meinhoongagan/urban-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_ByUsername(t *testing.T) {
	env := newTestEnv(t)
	acc := env.register(t, Registration{Username: "lena", Email: "Lena@Example.com", Password: "pw"})

	got, err := env.svc.Authenticate(context.Background(), "lena", "pw", ScopeCustomer)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestAuthenticate_ByEmailAnyCase(t *testing.T) {
	env := newTestEnv(t)
	acc := env.register(t, Registration{Username: "lena", Email: "Lena@Example.com", Password: "pw"})

	for _, identifier := range []string{"Lena@Example.com", "lena@example.com", "LENA@EXAMPLE.COM"} {
		got, err := env.svc.Authenticate(context.Background(), identifier, "pw", ScopeCustomer)
		require.NoError(t, err, identifier)
		assert.Equal(t, acc.ID, got.ID)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, Registration{Username: "lena", Email: "lena@example.com", Password: "pw"})
	ctx := context.Background()

	_, err := env.svc.Authenticate(ctx, "lena", "nope", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Authenticate(ctx, "LENA@example.com", "nope", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UnknownIdentifier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Authenticate(ctx, "ghost", "pw", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Authenticate(ctx, "ghost@example.com", "pw", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UsernameIsCaseSensitiveWithoutEmailFallback(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, Registration{Username: "lena", Email: "lena@example.com", Password: "pw"})

	_, err := env.svc.Authenticate(context.Background(), "LENA", "pw", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.register(t, Registration{Username: "nina", Email: "nina@example.com", Password: "pw"})
	require.NoError(t, env.svc.SetActive(ctx, acc.ID, false))

	_, err := env.svc.Authenticate(ctx, "nina", "pw", ScopeCustomer)
	assert.ErrorIs(t, err, ErrAccountInactive)

	// Identity is resolved first: a wrong password still reads as bad credentials.
	_, err = env.svc.Authenticate(ctx, "nina", "bad", ScopeCustomer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_AdminScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, Registration{Username: "cust", Email: "cust@example.com", Password: "pw"})
	env.register(t, Registration{Username: "boss", Email: "boss@example.com", Password: "pw", Role: models.RoleAdmin})

	_, err := env.svc.Authenticate(ctx, "cust", "pw", ScopeAdmin)
	assert.ErrorIs(t, err, ErrInsufficientPrivilege)

	got, err := env.svc.Authenticate(ctx, "boss@example.com", "pw", ScopeAdmin)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
}

func TestAuthenticate_ProviderScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, Registration{Username: "cust", Email: "cust@example.com", Password: "pw"})
	env.register(t, Registration{Username: "fixit", Email: "fixit@example.com", Password: "pw", Phone: "+15550003", Role: models.RoleProvider})

	_, err := env.svc.Authenticate(ctx, "cust", "pw", ScopeProvider)
	assert.ErrorIs(t, err, ErrNotAProvider)

	got, err := env.svc.Authenticate(ctx, "fixit", "pw", ScopeProvider)
	require.NoError(t, err)
	assert.True(t, got.IsProvider())
}
