package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"upcurrency/internal/config"
	"upcurrency/internal/infrastructure/lock"
	"upcurrency/internal/model"
	"upcurrency/internal/repository"
	"upcurrency/internal/verify"
	"upcurrency/pkg/idgen"
	"upcurrency/pkg/iphash"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// AuthService 注册/登录
// 身份证明由外部验证网关出具，这里只消费布尔结果；
// 注册是幂等的：重复验证等同于登录，只刷新身份指纹
type AuthService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	verifier    verify.Verifier
	accountRepo *repository.AccountRepository
	outboxRepo  *repository.OutboxRepository
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, verifier verify.Verifier) *AuthService {
	return &AuthService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		verifier:    verifier,
		accountRepo: repository.NewAccountRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// RegisterOrLogin 验证通过后注册或登录
//
// 账户不存在：创建账户（初始余额、加入活动、来源指纹），单行写入，
// 失败不会留下半成品状态
// 账户已存在：只刷新身份指纹（最近一次来源为准），余额和活动不动
func (s *AuthService) RegisterOrLogin(ctx context.Context, username, code, remoteAddr string) (*model.Account, error) {
	verified, err := s.verifier.Verify(ctx, username, code)
	if err != nil {
		return nil, fmt.Errorf("身份验证请求失败: %w", err)
	}
	if !verified {
		return nil, ErrVerifyFailed
	}

	fingerprint := iphash.Hash(remoteAddr)

	// 注册锁：同一用户名并发验证时只允许一个走创建路径
	registerLock := lock.NewRegisterLock(s.redisClient, username)
	if err := registerLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer registerLock.Unlock(ctx)

	existing, err := s.accountRepo.GetByUsername(ctx, username)
	if err == nil {
		// 登录：只更新指纹
		if err := s.accountRepo.UpdateIPHash(ctx, username, fingerprint); err != nil {
			return nil, err
		}
		existing.IPHash = fingerprint
		log.Printf("用户登录: username=%s", username)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	// 注册新账户
	uid, err := s.verifier.LookupUserID(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("查询第三方用户ID失败: %w", err)
	}

	now := time.Now()
	account := &model.Account{
		Username: username,
		UID:      uid,
		Balance:  s.cfg.Business.InitialBalance,
		IPHash:   fingerprint,
		Bio:      "New to UP Currency!",
		Country:  "Unknown",
		JoinDate: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.accountRepo.CreateIfAbsent(ctx, tx, account)
		if err != nil {
			return err
		}
		if !created {
			// 锁过期后的极端竞态：当作登录处理
			return tx.Model(&model.Account{}).
				Where("username = ?", username).
				Update("ip_hash", fingerprint).Error
		}

		args, _ := json.Marshal(map[string]string{"user": username})
		activity := &model.AccountActivity{
			EventNo:  idgen.GenerateEventNo(),
			Username: username,
			Type:     model.ActivityTypeJoin,
			Args:     string(args),
		}
		if err := s.accountRepo.AppendActivity(ctx, tx, activity); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"event":     model.EventTypeJoin,
			"username":  username,
			"joined_at": now.Format(time.RFC3339),
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: username,
			Topic:      s.cfg.Kafka.Topic.LedgerEvents,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		return s.outboxRepo.Create(ctx, tx, outboxMsg)
	})

	if err != nil {
		return nil, err
	}

	result, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	log.Printf("账户创建: username=%s, balance=%.1f", username, result.Balance)
	return result, nil
}
