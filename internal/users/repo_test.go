package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/pkg/db/dbtest"
	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

func TestCreateNormalizesEmailAndRole(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, NewUser{Email: "  Ana@Example.COM ", PasswordHash: "h", Role: "root"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, enums.SystemRoleUser, user.SystemRole)

	found, err := repo.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestSetColumnReportsMissingRow(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	err := repo.UpdateLastLogin(context.Background(), uuid.New(), time.Now())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestProfileOmitsHash(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	user, err := repo.Create(context.Background(), NewUser{Email: "b@example.com", PasswordHash: "secret"})
	require.NoError(t, err)

	p := ProfileOf(user)
	assert.Equal(t, user.ID, p.ID)
	assert.Nil(t, ProfileOf(nil))
}
