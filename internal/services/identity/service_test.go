package identity_test

import (
	"context"
	"testing"

	"ledgerpay/internal/models"
	"ledgerpay/internal/repositories"
	"ledgerpay/internal/services/identity"
	"ledgerpay/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateAndLookup(t *testing.T) {
	db := testutil.NewDB(t)
	svc := identity.NewService(repositories.NewUserRepository(db, nil))
	ctx := context.Background()

	user, err := svc.Create(ctx, identity.CreateUserInput{Name: "Ada", Email: " Ada@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))

	_, err = svc.Create(ctx, identity.CreateUserInput{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, identity.ErrUserExists)

	id, err := svc.Lookup(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", id.Name)

	_, err = svc.Lookup(ctx, 9999)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestLookup_SuspendedUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := identity.NewService(repositories.NewUserRepository(db, nil))

	user := testutil.CreateUser(t, db, "mallory")
	require.NoError(t, db.Model(user).Update("status", "suspended").Error)

	_, err := svc.Lookup(context.Background(), user.ID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestTokenVersion(t *testing.T) {
	db := testutil.NewDB(t)
	svc := identity.NewService(repositories.NewUserRepository(db, nil))
	user := testutil.CreateUser(t, db, "tess")

	version, err := svc.TokenVersion(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	_, err = svc.TokenVersion(context.Background(), 9999)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
