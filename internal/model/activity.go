package model

import (
	"time"
)

// 活动事件类型
const (
	ActivityTypeJoin = 1 // 加入
)

// AccountActivity 账户活动表
// 记录账户生命周期事件（加入等）
//
// 【重要】只追加，不修改，不删除，不重排 —— 每条事件一行，
// 插入即原子追加，与余额字段的 CAS 更新互不竞争
type AccountActivity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_no"` // 事件编号（全局唯一）
	Username  string    `gorm:"type:varchar(64);index;not null" json:"username"`
	Type      int       `gorm:"not null" json:"type"`
	Args      string    `gorm:"type:varchar(512)" json:"args"` // 事件参数（JSON）
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountActivity) TableName() string {
	return "account_activity"
}
