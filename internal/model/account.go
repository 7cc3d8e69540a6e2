package model

import (
	"time"
)

// Account 用户账户表
// 以用户名为业务主键，记录 UP 币余额，是整个账本系统的核心数据
type Account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"` // 用户名，创建后不可变，大小写敏感
	UID       string    `gorm:"type:varchar(32)" json:"uid"`                           // 第三方平台的用户ID（验证时获取）
	Balance   float64   `gorm:"not null;default:0" json:"balance"`                     // 余额，任何提交后都必须 >= 0
	IPHash    string    `gorm:"type:varchar(16);not null" json:"ip_hash"`              // 身份指纹（最近一次登录来源），仅用于比较
	Bio       string    `gorm:"type:varchar(256)" json:"bio"`
	Country   string    `gorm:"type:varchar(64)" json:"country"`
	Warning   *string   `gorm:"type:varchar(256)" json:"warning"`  // 管理员警告，NULL 表示无
	Version   int       `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	JoinDate  time.Time `gorm:"not null" json:"join_date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
