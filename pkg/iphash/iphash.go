package iphash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ============================================================================
// 身份指纹生成器
// ============================================================================
//
// 【为什么要对 IP 做哈希？】
//
// 反小号检测需要判断两个账户是否来自同一网络来源，
// 但直接存储 IP 会泄露用户隐私。做法：
//   1. 去掉固定长度前缀（降低相邻网段误判的概率）
//   2. SHA-256 摘要，截取前 10 位十六进制存储
//
// 指纹只用于相等性比较，不可逆推出原始地址。
//
// ============================================================================

// Unknown 无法获取来源地址时的固定指纹
const Unknown = "unknown"

const (
	prefixCut = 2  // 丢弃的地址前缀长度
	hashLen   = 10 // 存储的指纹长度（十六进制字符数）
)

// Hash 计算网络来源的身份指纹
// 相同地址永远得到相同指纹；空地址返回固定的 Unknown 哨兵值，永不失败
func Hash(rawAddr string) string {
	if rawAddr == "" {
		return Unknown
	}

	cut := rawAddr
	if len(rawAddr) > prefixCut {
		cut = rawAddr[prefixCut:]
	}

	sum := sha256.Sum256([]byte(cut))
	return hex.EncodeToString(sum[:])[:hashLen]
}
