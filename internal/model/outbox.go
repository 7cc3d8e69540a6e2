package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 账本事件类型（outbox 消息 payload 中的 event 字段）
const (
	EventTypeJoin     = "JOIN"
	EventTypeTransfer = "TRANSFER"
	EventTypeWarn     = "WARN"
	EventTypeDelete   = "DELETE"
)

// OutboxMessage 事务性发件箱
// 账本事件与余额变更在同一事务中落库，由后台任务异步投递到 Kafka；
// 已投递的消息会被定期清理，不做持久的交易历史
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
