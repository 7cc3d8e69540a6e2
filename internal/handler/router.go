package handler

import (
	"upcurrency/internal/config"
	"upcurrency/internal/verify"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, verifier verify.Verifier) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg, verifier)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 认证相关
		auth := api.Group("/auth")
		{
			auth.POST("/verify", h.VerifyUser)
		}

		// 用户相关
		user := api.Group("/user")
		{
			user.GET("/data", h.GetUserData)
			user.POST("/dismiss_warning", h.DismissWarning)
			user.POST("/delete", h.DeleteAccount)
		}

		// 转账相关
		transaction := api.Group("/transaction")
		{
			transaction.POST("/send", h.SendCurrency)
		}

		// 挖矿相关
		mine := api.Group("/mine")
		{
			mine.POST("/claim", h.MineIncome)
		}

		// 管理员相关
		admin := api.Group("/admin")
		{
			admin.POST("/warn", h.WarnUser)
			admin.POST("/lock", h.LockSystem)
		}

		// 排行榜
		api.GET("/leaderboard", h.GetLeaderboard)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
