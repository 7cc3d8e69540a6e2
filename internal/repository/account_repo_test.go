package repository

import (
	"context"
	"testing"

	"upcurrency/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库只允许一个连接，避免连接池拿到不同的 :memory: 实例
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.AccountActivity{},
		&model.GlobalConfig{},
		&model.OutboxMessage{},
	))
	return db
}

func seedAccount(t *testing.T, repo *AccountRepository, username, ipHash string, balance float64) *model.Account {
	t.Helper()

	account := &model.Account{
		Username: username,
		Balance:  balance,
		IPHash:   ipHash,
	}
	created, err := repo.CreateIfAbsent(context.Background(), nil, account)
	require.NoError(t, err)
	require.True(t, created)
	return account
}

func TestCreateIfAbsentIdempotent(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	// 重复创建不覆盖已有数据
	created, err := repo.CreateIfAbsent(ctx, nil, &model.Account{
		Username: "alice",
		Balance:  0,
		IPHash:   "bbb",
	})
	require.NoError(t, err)
	assert.False(t, created)

	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, account.Balance)
	assert.Equal(t, "aaa", account.IPHash)
}

func TestGetByUsernameNotFound(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))

	_, err := repo.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeduct(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	err := repo.Deduct(ctx, nil, "alice", 300, 0)
	require.NoError(t, err)

	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 700.0, account.Balance)
	assert.Equal(t, 1, account.Version)
}

func TestDeductInsufficientBalance(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 100)

	err := repo.Deduct(ctx, nil, "alice", 200, 0)
	assert.ErrorIs(t, err, ErrBalanceNotEnough)

	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100.0, account.Balance)
}

func TestDeductVersionConflict(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	// 版本号过期 = 有并发写入者抢先提交
	err := repo.Deduct(ctx, nil, "alice", 100, 7)
	assert.ErrorIs(t, err, ErrOptimisticLock)

	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, account.Balance)
}

func TestIncrease(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "bob", "bbb", 50)

	require.NoError(t, repo.Increase(ctx, nil, "bob", 25))

	account, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 75.0, account.Balance)

	assert.ErrorIs(t, repo.Increase(ctx, nil, "nobody", 10), ErrAccountNotFound)
}

func TestCreditMine(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	// 指纹匹配：入账
	require.NoError(t, repo.CreditMine(ctx, "alice", "aaa", 120))
	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1120.0, account.Balance)

	// 指纹不符：拒绝，余额不变
	err = repo.CreditMine(ctx, "alice", "zzz", 120)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
	account, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1120.0, account.Balance)

	// 账户不存在
	err = repo.CreditMine(ctx, "nobody", "aaa", 120)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateIPHash(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	require.NoError(t, repo.UpdateIPHash(ctx, "alice", "ccc"))
	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "ccc", account.IPHash)
	assert.Equal(t, 1000.0, account.Balance)

	assert.ErrorIs(t, repo.UpdateIPHash(ctx, "nobody", "ccc"), ErrAccountNotFound)
}

func TestWarningSetAndClear(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)

	require.NoError(t, repo.SetWarning(ctx, "alice", "停止刷屏"))
	account, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, account.Warning)
	assert.Equal(t, "停止刷屏", *account.Warning)

	require.NoError(t, repo.ClearWarning(ctx, "alice"))
	account, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, account.Warning)
}

func TestDeleteRemovesActivities(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)
	require.NoError(t, repo.AppendActivity(ctx, nil, &model.AccountActivity{
		EventNo:  "EVT1",
		Username: "alice",
		Type:     model.ActivityTypeJoin,
	}))

	require.NoError(t, repo.Delete(ctx, "alice"))

	_, err := repo.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	activities, err := repo.GetActivities(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, activities)

	assert.ErrorIs(t, repo.Delete(ctx, "alice"), ErrAccountNotFound)
}

func TestActivityAppendOrder(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 1000)
	for _, no := range []string{"EVT1", "EVT2", "EVT3"} {
		require.NoError(t, repo.AppendActivity(ctx, nil, &model.AccountActivity{
			EventNo:  no,
			Username: "alice",
			Type:     model.ActivityTypeJoin,
		}))
	}

	activities, err := repo.GetActivities(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, "EVT1", activities[0].EventNo)
	assert.Equal(t, "EVT2", activities[1].EventNo)
	assert.Equal(t, "EVT3", activities[2].EventNo)
}

func TestListByBalanceDesc(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()

	seedAccount(t, repo, "alice", "aaa", 700)
	seedAccount(t, repo, "bob", "bbb", 1300)
	seedAccount(t, repo, "carol", "ccc", 50)

	accounts, err := repo.ListByBalanceDesc(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "bob", accounts[0].Username)
	assert.Equal(t, "alice", accounts[1].Username)
	assert.Equal(t, "carol", accounts[2].Username)
}
