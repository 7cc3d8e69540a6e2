package service

import (
	"errors"
	"fmt"
)

// 业务前置检查失败的哨兵错误
// 存储层冲突类错误（余额不足、乐观锁、账户不存在）定义在 repository 包
var (
	ErrInvalidAmount   = errors.New("金额必须大于0")
	ErrInvalidDuration = errors.New("挖矿时长必须大于0")
	ErrSelfTransfer    = errors.New("不能给自己转账")
	ErrSameIdentity    = errors.New("检测到相同身份来源，转账被拒绝")
	ErrVerifyFailed    = errors.New("验证码未在最近评论中找到")
	ErrNotAdmin        = errors.New("无管理员权限")
)

// SystemLockedError 全局锁生效时的拒绝，携带管理员配置的锁定说明
type SystemLockedError struct {
	LockMessage string
}

func (e *SystemLockedError) Error() string {
	return fmt.Sprintf("系统已锁定: %s", e.LockMessage)
}
