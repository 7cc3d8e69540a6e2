package model

import (
	"time"
)

// GlobalConfigID 全局配置单例行的固定主键
const GlobalConfigID = 1

// GlobalConfig 全局配置表（单行）
// isLocked 置位时拒绝一切转账；每次转账前读取，缺行视为未锁定
// 只有管理员路径可以写入
type GlobalConfig struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	IsLocked    bool      `gorm:"not null;default:false" json:"is_locked"`
	LockMessage string    `gorm:"type:varchar(256)" json:"lock_message"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GlobalConfig) TableName() string {
	return "global_config"
}
