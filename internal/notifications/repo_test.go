package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
	"github.com/tallyops/stockcount-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  reconciliation_id TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func createNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, created time.Time) *models.Notification {
	t.Helper()

	notification := &models.Notification{
		ID:               uuid.New(),
		UserID:           userID,
		Type:             enums.NotificationTypeReconciliationSubmitted,
		ReconciliationID: uuid.New(),
		Title:            "Reconciliation submitted",
		Body:             "A stock count is waiting for review",
		CreatedAt:        created,
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestListFollowsCursorAcrossPages(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var created []*models.Notification
	for i := 0; i < 4; i++ {
		created = append(created, createNotification(t, db, userID, base.Add(time.Duration(i)*time.Minute)))
	}

	// Newest first, limit 2: page one is rows 3 and 2.
	rows, next, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, next)
	assert.Equal(t, created[3].ID, rows[0].ID)
	assert.Equal(t, created[2].ID, rows[1].ID)

	rows, next, err = repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, created[1].ID, rows[0].ID)
	assert.Equal(t, created[0].ID, rows[1].ID)
	assert.Nil(t, next)
}

func TestListUnreadOnlySkipsReadRows(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	read := createNotification(t, db, userID, base)
	unread := createNotification(t, db, userID, base.Add(time.Minute))

	now := time.Now().UTC()
	mark, err := repo.MarkRead(ctx, userID, read.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Found)
	assert.True(t, mark.Updated)

	rows, _, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}
