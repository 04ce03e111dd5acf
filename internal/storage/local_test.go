package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "offline.db")
	s := NewLocalStore(path)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	want := entities.UserProgress{
		UserID:           "u-1",
		Coins:            140,
		Level:            2,
		StreakDays:       3,
		LastActivityDate: &day,
	}

	require.NoError(t, s.Put(ctx, UserProgress, want))

	var got entities.UserProgress
	found, err := s.Get(ctx, UserProgress, "u-1", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, got.LastActivityDate)
	assert.True(t, day.Equal(*got.LastActivityDate))
	got.LastActivityDate, want.LastActivityDate = nil, nil
	assert.Equal(t, want, got)
}

func TestLocalStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Put(ctx, UserProgress, entities.UserProgress{UserID: "u-1", Coins: 10, Level: 1}))
	require.NoError(t, s.Put(ctx, UserProgress, entities.UserProgress{UserID: "u-1", Coins: 250, Level: 3}))

	all, err := s.GetAll(ctx, UserProgress)
	require.NoError(t, err)
	require.Len(t, all, 1)

	var got entities.UserProgress
	require.NoError(t, json.Unmarshal(all[0], &got))
	assert.Equal(t, 250, got.Coins)
}

func TestLocalStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	var got entities.UserProgress
	found, err := s.Get(context.Background(), UserProgress, "nobody", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.Delete(ctx, UserRewards, "missing"))

	require.NoError(t, s.Put(ctx, UserRewards, entities.RewardPurchase{ID: "p-1", UserID: "u-1", RewardID: "hint-pack"}))
	require.NoError(t, s.Delete(ctx, UserRewards, "p-1"))

	var got entities.RewardPurchase
	found, err := s.Get(ctx, UserRewards, "p-1", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalStore_GetAllByIndex(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	items := []entities.SyncQueueItem{
		{ID: "a", Action: entities.SyncActionUpdate, Collection: UserProgress, Payload: json.RawMessage(`{}`), Timestamp: 1},
		{ID: "b", Action: entities.SyncActionCreate, Collection: UserRewards, Payload: json.RawMessage(`{}`), Timestamp: 2, Synced: true},
		{ID: "c", Action: entities.SyncActionDelete, Collection: UserRewards, Payload: json.RawMessage(`{}`), Timestamp: 3},
	}
	for _, it := range items {
		require.NoError(t, s.Put(ctx, SyncQueue, it))
	}

	raws, err := s.GetAllByIndex(ctx, SyncQueue, "synced", false)
	require.NoError(t, err)

	pending, err := DecodeAll[entities.SyncQueueItem](raws)
	require.NoError(t, err)

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)

	_, err = s.GetAllByIndex(ctx, SyncQueue, "timestamp", 1)
	assert.ErrorIs(t, err, ErrUnknownIndex)
}

func TestLocalStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	err := s.Put(ctx, "notes", map[string]string{"id": "x"})
	assert.ErrorIs(t, err, ErrUnknownCollection)

	err = s.Put(ctx, UserProgress, map[string]any{"coins": 3})
	assert.ErrorIs(t, err, ErrMissingKey)

	err = s.Put(ctx, UserProgress, map[string]any{"user_id": ""})
	assert.ErrorIs(t, err, ErrMissingKey)

	require.NoError(t, s.Close())
	_, err = s.GetAll(ctx, UserProgress)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline.db")

	first := NewLocalStore(path)
	require.NoError(t, first.Put(ctx, UserProgress, entities.NewUserProgress(CurrentProgressKey)))
	require.NoError(t, first.Close())

	second := NewLocalStore(path)
	defer second.Close()

	var got entities.UserProgress
	found, err := second.Get(ctx, UserProgress, CurrentProgressKey, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, got.Level)
}

func TestLocalStore_RejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline.db")

	db, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s := NewLocalStore(path)
	defer s.Close()

	_, err = s.GetAll(ctx, Scenarios)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}
