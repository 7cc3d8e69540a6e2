package verify

import (
	"context"
)

// Verifier 第三方身份验证网关
// 账本核心只消费布尔结果，不关心验证的具体协议
type Verifier interface {
	// Verify 校验 username 是否在第三方平台发出了包含 code 的验证评论
	Verify(ctx context.Context, username, code string) (bool, error)
	// LookupUserID 查询用户在第三方平台的数字ID
	LookupUserID(ctx context.Context, username string) (string, error)
}
