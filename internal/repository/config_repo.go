package repository

import (
	"context"
	"errors"

	"upcurrency/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfigRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetGlobal 读取全局配置单例行
// 行不存在视为未锁定（与缺省配置等价），不算错误
func (r *ConfigRepository) GetGlobal(ctx context.Context) (*model.GlobalConfig, error) {
	var cfg model.GlobalConfig
	err := r.db.WithContext(ctx).
		Where("id = ?", model.GlobalConfigID).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.GlobalConfig{ID: model.GlobalConfigID}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// SetLock 写入全局锁状态（仅管理员路径调用）
func (r *ConfigRepository) SetLock(ctx context.Context, locked bool, message string) error {
	cfg := &model.GlobalConfig{
		ID:          model.GlobalConfigID,
		IsLocked:    locked,
		LockMessage: message,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_locked", "lock_message"}),
		}).
		Create(cfg).Error
}
