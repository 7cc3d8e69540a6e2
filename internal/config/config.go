package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Verify   VerifyConfig   `mapstructure:"verify"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents string `mapstructure:"ledger_events"`
}

// VerifyConfig 第三方身份验证配置
type VerifyConfig struct {
	AuthProjectID string `mapstructure:"auth_project_id"` // 评论验证用的项目ID
	CommentLimit  int    `mapstructure:"comment_limit"`   // 检查最近多少条评论
}

// BusinessConfig 账本业务参数
// 初始赠送、挖矿速率等在源头上是常量，这里做成配置并给默认值
type BusinessConfig struct {
	InitialBalance          float64  `mapstructure:"initial_balance"`           // 注册初始余额
	MineRatePerSecond       float64  `mapstructure:"mine_rate_per_second"`      // 挖矿速率（币/秒）
	AdminUsernames          []string `mapstructure:"admin_usernames"`           // 管理员白名单
	MaxRetryCount           int      `mapstructure:"max_retry_count"`           // outbox 最大重试次数
	OutboxRetentionMinutes  int      `mapstructure:"outbox_retention_minutes"`  // 已投递消息保留时间
	LeaderboardCacheSeconds int      `mapstructure:"leaderboard_cache_seconds"` // 排行榜缓存TTL
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("verify.comment_limit", 20)
	viper.SetDefault("business.initial_balance", 1000.0)
	viper.SetDefault("business.mine_rate_per_second", 1.0)
	viper.SetDefault("business.max_retry_count", 3)
	viper.SetDefault("business.outbox_retention_minutes", 60)
	viper.SetDefault("business.leaderboard_cache_seconds", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}

// IsAdmin 判断用户名是否在管理员白名单中
func (c *Config) IsAdmin(username string) bool {
	for _, admin := range c.Business.AdminUsernames {
		if admin == username {
			return true
		}
	}
	return false
}
