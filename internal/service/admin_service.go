package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"upcurrency/internal/config"
	"upcurrency/internal/model"
	"upcurrency/internal/repository"

	"gorm.io/gorm"
)

// AdminService 管理与账户维护操作
// 管理员身份按配置白名单校验，不写死单个用户名
type AdminService struct {
	db          *gorm.DB
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	configRepo  *repository.ConfigRepository
	outboxRepo  *repository.OutboxRepository
}

func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:          db,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		configRepo:  repository.NewConfigRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// SetWarning 管理员给账户设置警告
func (s *AdminService) SetWarning(ctx context.Context, admin, target, message string) error {
	if !s.cfg.IsAdmin(admin) {
		return ErrNotAdmin
	}

	if err := s.accountRepo.SetWarning(ctx, target, message); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"event":   model.EventTypeWarn,
		"admin":   admin,
		"target":  target,
		"message": message,
		"at":      time.Now().Format(time.RFC3339),
	})
	outboxMsg := &model.OutboxMessage{
		MessageKey: target,
		Topic:      s.cfg.Kafka.Topic.LedgerEvents,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		log.Printf("写入警告事件失败: target=%s, err=%v", target, err)
	}

	log.Printf("设置警告: admin=%s, target=%s", admin, target)
	return nil
}

// ClearWarning 账户持有者清除自己的警告（点了"不再显示"）
func (s *AdminService) ClearWarning(ctx context.Context, username string) error {
	return s.accountRepo.ClearWarning(ctx, username)
}

// DeleteAccount 删除账户，硬删除，不可恢复
func (s *AdminService) DeleteAccount(ctx context.Context, username string) error {
	if err := s.accountRepo.Delete(ctx, username); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"event":    model.EventTypeDelete,
		"username": username,
		"at":       time.Now().Format(time.RFC3339),
	})
	outboxMsg := &model.OutboxMessage{
		MessageKey: username,
		Topic:      s.cfg.Kafka.Topic.LedgerEvents,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		log.Printf("写入删除事件失败: username=%s, err=%v", username, err)
	}

	log.Printf("账户已删除: username=%s", username)
	return nil
}

// SetSystemLock 管理员设置/解除全局锁
// 全局锁是转账的总开关，锁定说明会原样返回给被拒绝的用户
func (s *AdminService) SetSystemLock(ctx context.Context, admin string, locked bool, message string) error {
	if !s.cfg.IsAdmin(admin) {
		return ErrNotAdmin
	}

	if err := s.configRepo.SetLock(ctx, locked, message); err != nil {
		return err
	}

	log.Printf("全局锁变更: admin=%s, locked=%v", admin, locked)
	return nil
}
