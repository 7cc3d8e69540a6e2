package handler

import (
	"errors"
	"net/http"

	"upcurrency/internal/config"
	"upcurrency/internal/repository"
	"upcurrency/internal/service"
	"upcurrency/internal/verify"
	"upcurrency/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService   *service.AuthService
	ledgerService *service.LedgerService
	adminService  *service.AdminService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, verifier verify.Verifier) *Handler {
	return &Handler{
		authService:   service.NewAuthService(db, rdb, cfg, verifier),
		ledgerService: service.NewLedgerService(db, rdb, cfg),
		adminService:  service.NewAdminService(db, cfg),
	}
}

// fail 把服务层错误翻译成业务码和 HTTP 状态
func fail(c *gin.Context, err error) {
	var lockedErr *service.SystemLockedError

	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrInvalidDuration):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrVerifyFailed):
		response.Unauthorized(c, response.CodeVerifyFailed, err.Error())
	case errors.Is(err, service.ErrNotAdmin):
		response.Forbidden(c, err.Error())
	case errors.Is(err, repository.ErrAccountNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrSameIdentity):
		response.Error(c, http.StatusForbidden, response.CodeAltAccountBlocked, err.Error())
	case errors.Is(err, repository.ErrFingerprintMismatch):
		response.Error(c, http.StatusForbidden, response.CodeMineRejected, err.Error())
	case errors.Is(err, repository.ErrOptimisticLock):
		response.Conflict(c, err.Error())
	case errors.As(err, &lockedErr):
		response.Locked(c, lockedErr.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 认证相关接口
// ============================================================

// VerifyRequest 验证请求
type VerifyRequest struct {
	Username string `json:"username" binding:"required"`
	Code     string `json:"code" binding:"required"` // 前端生成的验证码
}

// VerifyUser 验证并注册/登录
// POST /api/v1/auth/verify
//
// 【关键点】注册是幂等的：账户已存在时等同登录，只刷新身份指纹，
// 余额、活动记录、加入时间都不会被重置
func (h *Handler) VerifyUser(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.authService.RegisterOrLogin(c.Request.Context(), req.Username, req.Code, c.ClientIP())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, account)
}

// ============================================================
// 用户相关接口
// ============================================================

// GetUserData 查询用户数据
// GET /api/v1/user/data?username=xxx
func (h *Handler) GetUserData(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		response.ParamError(c, "username 参数不能为空")
		return
	}

	data, err := h.ledgerService.GetUser(c.Request.Context(), username)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, data)
}

// DismissWarning 用户清除自己的警告
// POST /api/v1/user/dismiss_warning
func (h *Handler) DismissWarning(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.adminService.ClearWarning(c.Request.Context(), req.Username); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "警告已清除",
	})
}

// DeleteAccount 删除账户
// POST /api/v1/user/delete
func (h *Handler) DeleteAccount(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.adminService.DeleteAccount(c.Request.Context(), req.Username); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "账户已删除",
	})
}

// ============================================================
// 转账相关接口
// ============================================================

// SendRequest 转账请求
type SendRequest struct {
	Sender    string  `json:"sender" binding:"required"`
	Recipient string  `json:"recipient" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// SendCurrency 转账
// POST /api/v1/transaction/send
//
// 【关键点】转账是整个系统最核心的操作，需要保证：
// 1. 前置检查按固定顺序执行（金额、自转、全局锁、存在性、指纹、余额）
// 2. 原子性：出账和入账同一事务提交，要么都生效要么都不生效
// 3. 并发安全：乐观锁 CAS，冲突时返回 409 由客户端整体重试
func (h *Handler) SendCurrency(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.ledgerService.Transfer(c.Request.Context(), req.Sender, req.Recipient, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 挖矿相关接口
// ============================================================

// MineRequest 挖矿请求
type MineRequest struct {
	Username    string  `json:"username" binding:"required"`
	Seconds     float64 `json:"seconds" binding:"required"`
	Fingerprint string  `json:"fingerprint" binding:"required"` // 客户端持有的身份指纹
}

// MineIncome 挖矿入账
// POST /api/v1/mine/claim
func (h *Handler) MineIncome(c *gin.Context) {
	var req MineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	reward, err := h.ledgerService.MineIncome(c.Request.Context(), req.Username, req.Seconds, req.Fingerprint)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"reward": reward,
	})
}

// ============================================================
// 排行榜接口
// ============================================================

// GetLeaderboard 余额排行榜
// GET /api/v1/leaderboard
func (h *Handler) GetLeaderboard(c *gin.Context) {
	entries, err := h.ledgerService.Leaderboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, entries)
}

// ============================================================
// 管理员接口
// ============================================================

// WarnRequest 设置警告请求
type WarnRequest struct {
	Admin   string `json:"admin" binding:"required"`
	Target  string `json:"target" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// WarnUser 管理员设置警告
// POST /api/v1/admin/warn
func (h *Handler) WarnUser(c *gin.Context) {
	var req WarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.adminService.SetWarning(c.Request.Context(), req.Admin, req.Target, req.Message); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "警告已设置",
	})
}

// LockRequest 全局锁请求
type LockRequest struct {
	Admin   string `json:"admin" binding:"required"`
	Locked  *bool  `json:"locked" binding:"required"` // 指针以区分 false 和缺省
	Message string `json:"message"`
}

// LockSystem 管理员设置/解除全局锁
// POST /api/v1/admin/lock
func (h *Handler) LockSystem(c *gin.Context) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.adminService.SetSystemLock(c.Request.Context(), req.Admin, *req.Locked, req.Message); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "全局锁已更新",
	})
}
