package pickup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lafabrik/boutique-backend/pkg/db"
	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

func setupPickupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS pickup_tokens (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  token_hash TEXT NOT NULL UNIQUE,
  expires_at DATETIME NOT NULL,
  used_at DATETIME,
  used_by TEXT,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func newStoredToken(t *testing.T, conn *gorm.DB, repo Repository) (*models.PickupToken, string) {
	t.Helper()

	secret, hash, err := IssueSecret()
	require.NoError(t, err)

	token := &models.PickupToken{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		TokenHash: hash,
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	_, err = repo.Create(context.Background(), token)
	require.NoError(t, err)
	return token, secret
}

func TestFindByHashRoundTrip(t *testing.T) {
	conn := setupPickupTestDB(t)
	repo := NewRepository(conn)
	token, secret := newStoredToken(t, conn, repo)

	found, err := repo.FindByHash(context.Background(), HashSecret(secret))
	require.NoError(t, err)
	assert.Equal(t, token.OrderID, found.OrderID)

	_, err = repo.FindByHash(context.Background(), HashSecret("not-the-secret"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRedeemIsSingleUse(t *testing.T) {
	conn := setupPickupTestDB(t)
	repo := NewRepository(conn)
	token, _ := newStoredToken(t, conn, repo)
	ctx := context.Background()
	now := time.Now().UTC()

	rows, err := repo.Redeem(ctx, token.ID, now, "staff@lafabrik.example")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = repo.Redeem(ctx, token.ID, now, "other@lafabrik.example")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows, "second redeem must be a no-op")

	found, err := repo.FindByOrderID(ctx, token.OrderID)
	require.NoError(t, err)
	require.NotNil(t, found.UsedBy)
	assert.Equal(t, "staff@lafabrik.example", *found.UsedBy)
}

func TestDuplicateOrderTokenRejected(t *testing.T) {
	conn := setupPickupTestDB(t)
	repo := NewRepository(conn)
	token, _ := newStoredToken(t, conn, repo)

	_, hash, err := IssueSecret()
	require.NoError(t, err)

	dup := &models.PickupToken{
		ID:        uuid.New(),
		OrderID:   token.OrderID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	_, err = repo.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestFindExpiringUnusedWindow(t *testing.T) {
	conn := setupPickupTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(expires time.Time, used bool) *models.PickupToken {
		_, hash, err := IssueSecret()
		require.NoError(t, err)
		token := &models.PickupToken{
			ID:        uuid.New(),
			OrderID:   uuid.New(),
			TokenHash: hash,
			ExpiresAt: expires,
		}
		if used {
			usedAt := now
			token.UsedAt = &usedAt
		}
		_, err = repo.Create(ctx, token)
		require.NoError(t, err)
		return token
	}

	soon := mk(now.Add(3*24*time.Hour), false)
	mk(now.Add(20*24*time.Hour), false) // outside window
	mk(now.Add(2*24*time.Hour), true)   // already used
	mk(now.Add(-time.Hour), false)      // already expired

	tokens, err := repo.FindExpiringUnused(ctx, now, now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, soon.OrderID, tokens[0].OrderID)
}
