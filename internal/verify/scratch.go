package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ============================================================================
// Scratch 评论验证
// ============================================================================
//
// 前端生成一段验证码，引导用户在指定的认证项目下发评论；
// 后端拉取该项目最近的评论，检查是否存在 username（不区分大小写）
// 发出的、内容包含验证码的评论。
//
// ============================================================================

const defaultBaseURL = "https://api.scratch.mit.edu"

// ScratchVerifier 基于 Scratch 公开评论接口的 Verifier 实现
type ScratchVerifier struct {
	BaseURL      string
	ProjectID    string // 认证项目ID
	CommentLimit int    // 检查最近多少条评论
	client       *http.Client
}

func NewScratchVerifier(projectID string, commentLimit int) *ScratchVerifier {
	if commentLimit <= 0 {
		commentLimit = 20
	}
	return &ScratchVerifier{
		BaseURL:      defaultBaseURL,
		ProjectID:    projectID,
		CommentLimit: commentLimit,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

type scratchComment struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Author  struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
}

type scratchUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Verify 拉取认证项目最近评论，匹配作者和验证码
func (v *ScratchVerifier) Verify(ctx context.Context, username, code string) (bool, error) {
	url := fmt.Sprintf("%s/projects/%s/comments?offset=0&limit=%d", v.BaseURL, v.ProjectID, v.CommentLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("请求评论接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("评论接口返回异常状态: %d", resp.StatusCode)
	}

	var comments []scratchComment
	if err := json.NewDecoder(resp.Body).Decode(&comments); err != nil {
		return false, fmt.Errorf("解析评论响应失败: %w", err)
	}

	for _, comment := range comments {
		// 作者名不区分大小写，验证码要求精确包含
		if strings.EqualFold(comment.Author.Username, username) && strings.Contains(comment.Content, code) {
			return true, nil
		}
	}

	return false, nil
}

// LookupUserID 查询 Scratch 用户的数字ID
func (v *ScratchVerifier) LookupUserID(ctx context.Context, username string) (string, error) {
	url := fmt.Sprintf("%s/users/%s", v.BaseURL, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求用户接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("用户接口返回异常状态: %d", resp.StatusCode)
	}

	var user scratchUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("解析用户响应失败: %w", err)
	}

	return fmt.Sprintf("%d", user.ID), nil
}
