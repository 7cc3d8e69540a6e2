package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upcurrency/pkg/idgen"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 场景：同一个用户名同时发起两次注册验证（网络抖动导致重复提交）。
// 没有锁时两个请求都可能走进创建路径；加锁后只有一个能创建，
// 另一个等锁释放后按登录处理。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本保证"检查+删除"的原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 锁持有者标识
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
// SetNX 保证同一时刻只有一个客户端持有锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】先校验 value 再删除，用 Lua 脚本保证原子性。
// 不校验的话，持有者 A 超时后 B 拿到锁，A 迟到的 Unlock 会把 B 的锁删掉
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewRegisterLock 创建注册锁（按用户名维度）
//
// 按用户名加锁：不同用户可以并发注册，同一用户名的并发验证
// 只有一个能走创建路径，这正是幂等注册需要的互斥粒度
func NewRegisterLock(client *redis.Client, username string) *DistributedLock {
	key := fmt.Sprintf("auth:lock:user:%s", username)
	// value 用雪花ID，便于追踪是哪个请求持有锁
	value := fmt.Sprintf("%d", idgen.NextID())
	return NewDistributedLock(client, key, value, 30*time.Second)
}
