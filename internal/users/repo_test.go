package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedUser(t *testing.T, repo *Repository, in NewUser) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), in)
	require.NoError(t, err)
	return user
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	user := seedUser(t, repo, NewUser{Email: "  Buyer@Example.com ", PasswordHash: "hash", FirstName: " Ana ", LastName: "Silva"})

	assert.Equal(t, "buyer@example.com", user.Email)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, enums.RoleCustomer, user.Role)
	assert.True(t, user.IsActive)

	inactive := seedUser(t, repo, NewUser{Email: "off@example.com", PasswordHash: "h", FirstName: "O", LastName: "F", Inactive: true})
	reloaded, err := repo.FindByID(context.Background(), inactive.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestFindMissesReturnRecordNotFound(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user := seedUser(t, repo, NewUser{Email: "a@example.com", PasswordHash: "h", FirstName: "A", LastName: "B"})

	found, err := repo.FindByEmail(ctx, " A@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestColumnUpdates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user := seedUser(t, repo, NewUser{Email: "a@example.com", PasswordHash: "old", FirstName: "A", LastName: "B"})
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))
	require.NoError(t, repo.UpdateAddressColumns(ctx, user.ID, map[string]any{
		"address_street": "Rua das Flores",
		"address_city":   "Curitiba",
	}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
	assert.Equal(t, "new", reloaded.PasswordHash)
	require.NotNil(t, reloaded.AddressStreet)
	assert.Equal(t, "Rua das Flores", *reloaded.AddressStreet)
	require.NotNil(t, reloaded.AddressCity)
	assert.Equal(t, "Curitiba", *reloaded.AddressCity)

	assert.ErrorIs(t, repo.UpdateAddressColumns(ctx, uuid.New(), map[string]any{"address_city": "X"}), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), gorm.ErrRecordNotFound)
}

func TestFromModelCopiesPublicFields(t *testing.T) {
	assert.Nil(t, FromModel(nil))
	m := &models.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "secret", Role: enums.RoleAdmin, IsActive: true}
	u := FromModel(m)
	assert.Equal(t, m.ID, u.ID)
	assert.Equal(t, enums.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
}
