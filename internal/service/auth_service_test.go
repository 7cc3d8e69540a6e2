package service

import (
	"context"
	"testing"

	"upcurrency/internal/model"
	"upcurrency/internal/repository"
	"upcurrency/pkg/iphash"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVerifier 测试用验证网关
type fakeVerifier struct {
	verified bool
	uid      string
}

func (f *fakeVerifier) Verify(ctx context.Context, username, code string) (bool, error) {
	return f.verified, nil
}

func (f *fakeVerifier) LookupUserID(ctx context.Context, username string) (string, error) {
	return f.uid, nil
}

func TestRegisterCreatesAccount(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.db, env.redisClient, env.cfg, &fakeVerifier{verified: true, uid: "42"})
	ctx := context.Background()

	account, err := svc.RegisterOrLogin(ctx, "alice", "code123", "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "42", account.UID)
	assert.Equal(t, 1000.0, account.Balance)
	assert.Equal(t, "New to UP Currency!", account.Bio)
	assert.Equal(t, "Unknown", account.Country)
	assert.Equal(t, iphash.Hash("203.0.113.7"), account.IPHash)
	assert.False(t, account.JoinDate.IsZero())

	// 注册写入一条加入活动
	activities, err := env.accountRepo.GetActivities(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeJoin, activities[0].Type)

	// 加入事件进发件箱
	var outbox []*model.OutboxMessage
	require.NoError(t, env.db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Contains(t, outbox[0].Payload, `"event":"JOIN"`)
}

func TestRegisterOrLoginIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.db, env.redisClient, env.cfg, &fakeVerifier{verified: true, uid: "42"})
	ctx := context.Background()

	first, err := svc.RegisterOrLogin(ctx, "alice", "code123", "203.0.113.7")
	require.NoError(t, err)

	// 挖矿改变余额后再登录，余额和活动不会被重置
	require.NoError(t, env.accountRepo.CreditMine(ctx, "alice", first.IPHash, 500))

	second, err := svc.RegisterOrLogin(ctx, "alice", "code456", "198.51.100.9")
	require.NoError(t, err)

	assert.Equal(t, 1500.0, second.Balance)
	assert.Equal(t, first.JoinDate.Unix(), second.JoinDate.Unix())
	// 指纹以最近一次来源为准
	assert.Equal(t, iphash.Hash("198.51.100.9"), second.IPHash)

	activities, err := env.accountRepo.GetActivities(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, activities, 1)
}

func TestRegisterVerificationFailed(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.db, env.redisClient, env.cfg, &fakeVerifier{verified: false})
	ctx := context.Background()

	_, err := svc.RegisterOrLogin(ctx, "alice", "wrong", "203.0.113.7")
	assert.ErrorIs(t, err, ErrVerifyFailed)

	_, err = env.accountRepo.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestRegisterUnknownOrigin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.db, env.redisClient, env.cfg, &fakeVerifier{verified: true, uid: "42"})
	ctx := context.Background()

	// 拿不到来源地址时使用固定哨兵指纹
	account, err := svc.RegisterOrLogin(ctx, "alice", "code123", "")
	require.NoError(t, err)
	assert.Equal(t, iphash.Unknown, account.IPHash)
}
