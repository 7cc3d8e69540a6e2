package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"upcurrency/internal/config"
	"upcurrency/internal/model"
	"upcurrency/internal/repository"
	"upcurrency/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const leaderboardCacheKey = "leaderboard:top"

// LedgerService 账本引擎
// 账户余额只通过这里的操作变更，每个操作按固定顺序做前置检查，
// 余额变更一律走存储层的条件更新/事务提交，失败即整体失败
type LedgerService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	configRepo  *repository.ConfigRepository
	outboxRepo  *repository.OutboxRepository
}

func NewLedgerService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		configRepo:  repository.NewConfigRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type TransferResult struct {
	TransferNo    string  `json:"transfer_no"`
	SenderBalance float64 `json:"sender_balance"`
}

// Transfer 转账
//
// 前置检查按顺序执行，第一个失败的检查决定返回的错误：
//  1. 金额必须为正
//  2. 不能给自己转账
//  3. 全局锁未生效
//  4. 双方账户都存在
//  5. 身份指纹不同（相同即视为小号，包括双方都是 unknown 的情况）
//  6. 余额充足
//
// 【关键点】出账和入账在同一个数据库事务里提交，任何观察者都
// 不会看到只扣了款没入账的中间状态；出账带乐观锁版本，并发
// 冲突返回可重试错误，绝不部分生效
func (s *LedgerService) Transfer(ctx context.Context, sender, recipient string, amount float64) (*TransferResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if sender == recipient {
		return nil, ErrSelfTransfer
	}

	globalCfg, err := s.configRepo.GetGlobal(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取全局配置失败: %w", err)
	}
	if globalCfg.IsLocked {
		return nil, &SystemLockedError{LockMessage: globalCfg.LockMessage}
	}

	senderAccount, err := s.accountRepo.GetByUsername(ctx, sender)
	if err != nil {
		return nil, err
	}
	recipientAccount, err := s.accountRepo.GetByUsername(ctx, recipient)
	if err != nil {
		return nil, err
	}

	// 反小号：指纹相同一律拒绝，双方都是 unknown 时同样拒绝
	// （无法与同源区分，按同源处理）
	if senderAccount.IPHash == recipientAccount.IPHash {
		return nil, ErrSameIdentity
	}

	if senderAccount.Balance < amount {
		return nil, repository.ErrBalanceNotEnough
	}

	transferNo := idgen.GenerateTransferNo()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Deduct(ctx, tx, sender, amount, senderAccount.Version); err != nil {
			return err
		}

		if err := s.accountRepo.Increase(ctx, tx, recipient, amount); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"event":       model.EventTypeTransfer,
			"transfer_no": transferNo,
			"sender":      sender,
			"recipient":   recipient,
			"amount":      amount,
			"sent_at":     time.Now().Format(time.RFC3339),
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: transferNo,
			Topic:      s.cfg.Kafka.Topic.LedgerEvents,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		return s.outboxRepo.Create(ctx, tx, outboxMsg)
	})

	if err != nil {
		return nil, err
	}

	log.Printf("转账成功: transferNo=%s, sender=%s, recipient=%s, amount=%.2f",
		transferNo, sender, recipient, amount)

	return &TransferResult{
		TransferNo:    transferNo,
		SenderBalance: senderAccount.Balance - amount,
	}, nil
}

// MineIncome 挖矿入账
//
// 奖励 = 速率 × 时长。指纹校验和余额增量是同一条条件更新，
// 指纹不符时静默拒绝，不区分是来源漂移还是伪造
func (s *LedgerService) MineIncome(ctx context.Context, username string, elapsedSeconds float64, fingerprint string) (float64, error) {
	if elapsedSeconds <= 0 {
		return 0, ErrInvalidDuration
	}

	reward := s.cfg.Business.MineRatePerSecond * elapsedSeconds

	if err := s.accountRepo.CreditMine(ctx, username, fingerprint, reward); err != nil {
		return 0, err
	}

	log.Printf("挖矿入账: username=%s, seconds=%.0f, reward=%.2f", username, elapsedSeconds, reward)
	return reward, nil
}

// UserData 账户快照及其活动记录
type UserData struct {
	*model.Account
	Activity []*model.AccountActivity `json:"activity"`
}

// GetUser 查询账户数据
func (s *LedgerService) GetUser(ctx context.Context, username string) (*UserData, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	activities, err := s.accountRepo.GetActivities(ctx, username)
	if err != nil {
		return nil, err
	}

	return &UserData{Account: account, Activity: activities}, nil
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
	Country  string  `json:"country"`
}

// Leaderboard 按余额降序的排行榜
//
// 快照读，允许与进行中的转账短暂不一致，所以可以安全地
// 用 Redis 缓存一小段时间来扛读流量；缓存故障时直接回源
func (s *LedgerService) Leaderboard(ctx context.Context) ([]*LeaderboardEntry, error) {
	if cached, err := s.redisClient.Get(ctx, leaderboardCacheKey).Result(); err == nil {
		var entries []*LeaderboardEntry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return entries, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("读取排行榜缓存失败: %v", err)
	}

	accounts, err := s.accountRepo.ListByBalanceDesc(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*LeaderboardEntry, 0, len(accounts))
	for _, account := range accounts {
		entries = append(entries, &LeaderboardEntry{
			Username: account.Username,
			Balance:  account.Balance,
			Country:  account.Country,
		})
	}

	if data, err := json.Marshal(entries); err == nil {
		ttl := time.Duration(s.cfg.Business.LeaderboardCacheSeconds) * time.Second
		if err := s.redisClient.Set(ctx, leaderboardCacheKey, data, ttl).Err(); err != nil {
			log.Printf("写入排行榜缓存失败: %v", err)
		}
	}

	return entries, nil
}
