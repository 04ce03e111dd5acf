package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pgrepo "github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
	"github.com/botaqiy/botaqiy/internal/repository"
)

func newPurchaseService(t *testing.T) (*PurchaseService, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	catalog, err := repository.NewRewardRepository()
	require.NoError(t, err)

	svc := NewPurchaseService(
		pgrepo.NewProgressRepository(mock),
		pgrepo.NewRewardRepository(mock),
		catalog,
		NewRequestValidator(),
		zap.NewNop(),
	)
	return svc, mock
}

func hintPack(userID string) PurchaseRequest {
	return PurchaseRequest{
		UserID:     userID,
		RewardID:   "hint-pack",
		RewardName: "Hint Pack",
		RewardType: "hint",
		Cost:       150,
	}
}

func TestPurchase_Success(t *testing.T) {
	svc, mock := newPurchaseService(t)

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", 150).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(50))
	mock.ExpectExec(`INSERT INTO user_rewards`).
		WithArgs(pgxmock.AnyArg(), "u-1", "hint-pack", "Hint Pack", "hint", 150, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := svc.Purchase(context.Background(), hintPack("u-1"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 50, res.NewCoins)
	assert.Equal(t, "Successfully purchased Hint Pack", res.Message)
}

func TestPurchase_InsufficientCoins(t *testing.T) {
	svc, mock := newPurchaseService(t)

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", 150).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT coins FROM user_progress`).WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(100))

	res, err := svc.Purchase(context.Background(), hintPack("u-1"))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 100, res.CurrentCoins)
	assert.Equal(t, 150, res.Required)
}

func TestPurchase_MissingProgress(t *testing.T) {
	svc, mock := newPurchaseService(t)

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("ghost", 150).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT coins FROM user_progress`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := svc.Purchase(context.Background(), hintPack("ghost"))
	assert.ErrorIs(t, err, pgrepo.ErrProgressNotFound)
}

func TestPurchase_AuditFailureKeepsDeduction(t *testing.T) {
	svc, mock := newPurchaseService(t)

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", 150).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO user_rewards`).WillReturnError(errors.New("relation does not exist"))

	res, err := svc.Purchase(context.Background(), hintPack("u-1"))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.NewCoins)
}

func TestPurchase_RejectsBadInput(t *testing.T) {
	svc, _ := newPurchaseService(t)
	ctx := context.Background()

	req := hintPack("u-1")
	req.Cost = -5
	_, err := svc.Purchase(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = hintPack("")
	_, err = svc.Purchase(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPurchase_UnknownRewardUsesRequestedCost(t *testing.T) {
	svc, mock := newPurchaseService(t)

	req := PurchaseRequest{UserID: "u-1", RewardID: "seasonal-frame", RewardName: "Frame", RewardType: "avatar", Cost: 40}

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", 40).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(10))
	mock.ExpectExec(`INSERT INTO user_rewards`).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := svc.Purchase(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPurchase_ChargesRequestedCostForCatalogReward(t *testing.T) {
	svc, mock := newPurchaseService(t)

	req := hintPack("u-1")
	req.Cost = 50

	mock.ExpectQuery(`UPDATE user_progress`).WithArgs("u-1", 50).
		WillReturnRows(pgxmock.NewRows([]string{"coins"}).AddRow(50))
	mock.ExpectExec(`INSERT INTO user_rewards`).
		WithArgs(pgxmock.AnyArg(), "u-1", "hint-pack", "Hint Pack", "hint", 50, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := svc.Purchase(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 50, res.NewCoins)
}
