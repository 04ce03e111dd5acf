package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
	"github.com/botaqiy/botaqiy/internal/storage"
)

func newSyncService(t *testing.T) (*SyncService, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	tr := postgres.NewTransactor(mock)
	scores := NewScoreService(tr, NewRequestValidator(), zap.NewNop())
	return NewSyncService(tr, scores, zap.NewNop()), mock
}

func queued(t *testing.T, id string, action entities.SyncAction, collection string, payload any) entities.SyncQueueItem {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	return entities.SyncQueueItem{
		ID:         id,
		Action:     action,
		Collection: collection,
		Payload:    data,
		Timestamp:  time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestSyncService_AppliesCoinsDelta(t *testing.T) {
	svc, mock := newSyncService(t)
	item := queued(t, "item-1", entities.SyncActionUpdate, storage.UserProgress, entities.CoinsDelta{UserID: "u-1", CoinsDelta: -20})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WithArgs("item-1", "u-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(progressCols).AddRow("u-1", 50, 1, 0, (*time.Time)(nil)))
	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", -20).
		WillReturnRows(pgxmock.NewRows(progressCols).AddRow("u-1", 30, 1, 0, (*time.Time)(nil)))
	mock.ExpectCommit()

	res, err := svc.Apply(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Duplicate)
}

func TestSyncService_DuplicateIsAcknowledged(t *testing.T) {
	svc, mock := newSyncService(t)
	item := queued(t, "item-1", entities.SyncActionUpdate, storage.UserProgress, entities.CoinsDelta{UserID: "u-1", CoinsDelta: 5})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WithArgs("item-1", "u-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	res, err := svc.Apply(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Applied)
}

func TestSyncService_InsufficientCoinsIsConsumed(t *testing.T) {
	svc, mock := newSyncService(t)
	item := queued(t, "item-2", entities.SyncActionUpdate, storage.UserProgress, entities.CoinsDelta{UserID: "u-1", CoinsDelta: -500})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).
		WillReturnRows(pgxmock.NewRows(progressCols).AddRow("u-1", 40, 1, 0, (*time.Time)(nil)))
	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", -500).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT coins FROM user_progress`).WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(40))
	mock.ExpectCommit()

	res, err := svc.Apply(context.Background(), item)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "insufficient coins", res.Reason)
}

func TestSyncService_ReplaysScenarioAttempt(t *testing.T) {
	svc, mock := newSyncService(t)
	played := time.Date(2026, 6, 9, 20, 0, 0, 0, time.UTC)
	day := entities.TruncateDay(played)

	item := queued(t, "item-3", entities.SyncActionCreate, storage.Scenarios, entities.ScenarioAttempt{
		ID:             "attempt-1",
		UserID:         "u-1",
		ScenarioID:     "hard-1",
		Difficulty:     entities.DifficultyHard,
		TotalQuestions: 4,
		CorrectAnswers: 4,
		CreatedAt:      played,
	})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WithArgs("item-3", "u-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO user_scores`).
		WithArgs("attempt-1", "u-1", "", "hard-1", "hard", 60, 4, 4, played).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO user_progress`).WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(progressCols).AddRow("u-1", 0, 1, 0, (*time.Time)(nil)))
	mock.ExpectExec(`UPDATE user_progress`).
		WithArgs("u-1", 60, 1, 1, &day, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Replay(context.Background(), item))
}

func TestSyncService_SessionCreateAndDelete(t *testing.T) {
	svc, mock := newSyncService(t)
	ctx := context.Background()

	create := queued(t, "item-4", entities.SyncActionCreate, storage.FlashcardSessions, entities.FlashcardSession{
		ID:         "s-1",
		UserID:     "u-1",
		Title:      "Market",
		Flashcards: []entities.Flashcard{{Front: "سوق", Back: "market"}},
	})
	remove := queued(t, "item-5", entities.SyncActionDelete, storage.FlashcardSessions, sessionRef{ID: "s-1", UserID: "u-1"})

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO flashcard_sessions`).
		WithArgs("s-1", "u-1", "Market", "", 1, pgxmock.AnyArg(), time.UnixMilli(create.Timestamp).UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_applied_items`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM flashcard_sessions`).WithArgs("s-1", "u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	res, err := svc.Apply(ctx, create)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = svc.Apply(ctx, remove)
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestSyncService_RejectsBadItems(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, queued(t, "i", entities.SyncActionCreate, storage.UserRewards, map[string]string{"user_id": "u-1"}))
	assert.ErrorIs(t, err, ErrUnsupportedSyncItem)

	_, err = svc.Apply(ctx, queued(t, "i", entities.SyncActionUpdate, storage.UserProgress, map[string]int{"coins_delta": 3}))
	assert.ErrorIs(t, err, ErrInvalidSyncItem)

	_, err = svc.Apply(ctx, entities.SyncQueueItem{ID: "i", Action: entities.SyncActionUpdate, Collection: storage.UserProgress})
	assert.ErrorIs(t, err, ErrInvalidSyncItem)

	_, err = svc.Apply(ctx, queued(t, "", entities.SyncActionUpdate, storage.UserProgress, entities.CoinsDelta{UserID: "u-1"}))
	assert.ErrorIs(t, err, ErrInvalidSyncItem)

	_, err = svc.Apply(ctx, queued(t, "i", entities.SyncActionCreate, storage.Scenarios, entities.ScenarioAttempt{UserID: "u-1", ScenarioID: "easy-1"}))
	assert.ErrorIs(t, err, ErrInvalidSyncItem)
}
