package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGlobalAbsentRowIsUnlocked(t *testing.T) {
	repo := NewConfigRepository(newTestDB(t))

	cfg, err := repo.GetGlobal(context.Background())
	require.NoError(t, err)
	assert.False(t, cfg.IsLocked)
	assert.Empty(t, cfg.LockMessage)
}

func TestSetLockAndRead(t *testing.T) {
	repo := NewConfigRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SetLock(ctx, true, "系统维护中"))

	cfg, err := repo.GetGlobal(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.IsLocked)
	assert.Equal(t, "系统维护中", cfg.LockMessage)

	// 单例行：再次写入是更新而不是新增
	require.NoError(t, repo.SetLock(ctx, false, ""))
	cfg, err = repo.GetGlobal(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.IsLocked)
}
