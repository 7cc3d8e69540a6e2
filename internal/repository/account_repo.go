package repository

import (
	"context"
	"errors"

	"upcurrency/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrBalanceNotEnough    = errors.New("余额不足")
	ErrOptimisticLock      = errors.New("乐观锁冲突，请重试")
	ErrFingerprintMismatch = errors.New("身份指纹校验失败")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateIfAbsent 创建账户，用户名已存在时不做任何修改
// 返回是否真正插入了新行（幂等注册的判定依据）
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, tx *gorm.DB, account *model.Account) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoNothing: true,
		}).
		Create(account)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateIPHash 登录时刷新身份指纹（最近一次来源为准），不触碰余额
func (r *AccountRepository) UpdateIPHash(ctx context.Context, username, ipHash string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ?", username).
		Update("ip_hash", ipHash)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Deduct 扣减余额（转账出账）
//
// 【关键点】条件更新 + RowsAffected 判定，杜绝读-改-写竞态：
// WHERE 同时带上余额下限和版本号，任何一条不满足都不会扣款
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, username string, amount float64, version int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ? AND balance >= ? AND version = ?", username, amount, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// 区分失败原因：余额不足 or 版本冲突
		account, err := r.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}

// Increase 增加余额（转账入账），原子增量
func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, username string, amount float64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CreditMine 挖矿入账
//
// 【关键点】指纹校验放进 WHERE 条件里，校验和入账是同一条原子更新；
// 指纹不符时静默拒绝，不区分具体原因
func (r *AccountRepository) CreditMine(ctx context.Context, username, ipHash string, amount float64) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ? AND ip_hash = ?", username, ipHash).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByUsername(ctx, username); err != nil {
			return err
		}
		return ErrFingerprintMismatch
	}

	return nil
}

// ListByBalanceDesc 按余额降序扫描（排行榜快照读，不加锁）
func (r *AccountRepository) ListByBalanceDesc(ctx context.Context) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Order("balance DESC").
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) SetWarning(ctx context.Context, username, message string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ?", username).
		Update("warning", message)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ClearWarning(ctx context.Context, username string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("username = ?", username).
		Update("warning", nil)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Delete 删除账户及其活动记录（硬删除，不可恢复）
func (r *AccountRepository) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("username = ?", username).Delete(&model.Account{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return tx.Where("username = ?", username).Delete(&model.AccountActivity{}).Error
	})
}

// AppendActivity 追加活动事件（只插入，永不更新）
func (r *AccountRepository) AppendActivity(ctx context.Context, tx *gorm.DB, activity *model.AccountActivity) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(activity).Error
}

// GetActivities 按时间顺序读取账户活动
func (r *AccountRepository) GetActivities(ctx context.Context, username string) ([]*model.AccountActivity, error) {
	var activities []*model.AccountActivity
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("id ASC").
		Find(&activities).Error
	return activities, err
}
