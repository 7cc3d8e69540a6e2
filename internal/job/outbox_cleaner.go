package job

import (
	"context"
	"log"
	"time"

	"upcurrency/internal/config"
	"upcurrency/internal/repository"

	"gorm.io/gorm"
)

// OutboxCleaner 发件箱清理任务
// 定期删除已投递且超过保留期的事件，系统不积累持久的交易历史
type OutboxCleaner struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
}

func NewOutboxCleaner(db *gorm.DB, cfg *config.Config) *OutboxCleaner {
	return &OutboxCleaner{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   time.Minute,
	}
}

func (j *OutboxCleaner) Start(ctx context.Context) {
	log.Println("[OutboxCleaner] 事件清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxCleaner] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[OutboxCleaner] 任务停止")
			return
		case <-ticker.C:
			j.cleanSentMessages(ctx)
		}
	}
}

func (j *OutboxCleaner) Stop() {
	close(j.stopCh)
}

func (j *OutboxCleaner) cleanSentMessages(ctx context.Context) {
	retention := time.Duration(j.cfg.Business.OutboxRetentionMinutes) * time.Minute
	before := time.Now().Add(-retention)

	deleted, err := j.outboxRepo.DeleteSentBefore(ctx, before)
	if err != nil {
		log.Printf("[OutboxCleaner] 清理消息失败: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[OutboxCleaner] 本次清理 %d 条已投递消息", deleted)
	}
}
