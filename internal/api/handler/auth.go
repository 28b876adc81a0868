package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ValidationError(c, map[string][]string{"email": {service.CodeUnique}})
		default:
			writeError(c, err)
		}
		return
	}

	response.Created(c, resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserInactive):
			response.AuthError(c, err.Error())
		default:
			writeError(c, err)
		}
		return
	}

	response.SuccessWithMessage(c, "登录成功", resp)
}

// Refresh 用刷新令牌换取新的访问令牌
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken), errors.Is(err, service.ErrUserInactive):
			response.AuthError(c, err.Error())
		default:
			writeError(c, err)
		}
		return
	}

	response.Success(c, resp)
}

// GithubAuth 跳转到 GitHub 授权页，redirect 为登录完成后前端的回跳地址
// GET /api/v1/auth/github
func (h *AuthHandler) GithubAuth(c *gin.Context) {
	authURL, err := h.authService.GetGithubAuthURL(c.Request.Context(), c.Query("redirect"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// GithubCallback GitHub 授权回调；有回跳地址时把令牌放在 fragment 中跳转，否则返回 JSON
// GET /api/v1/auth/github/callback
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ParamError(c, "缺少 code 或 state")
		return
	}

	resp, redirectURI, err := h.authService.GithubCallback(c.Request.Context(), code, state)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOAuthState), errors.Is(err, service.ErrGithubEmailRequired):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrUserInactive):
			response.AuthError(c, err.Error())
		default:
			logger.For(c.Request.Context()).WithError(err).Error("github callback failed")
			response.ServerError(c, "GitHub 登录失败")
		}
		return
	}

	if redirectURI == "" {
		response.Success(c, resp)
		return
	}

	fragment := url.Values{}
	fragment.Set("token", resp.Token)
	fragment.Set("refresh_token", resp.RefreshToken)
	c.Redirect(http.StatusFound, redirectURI+"#"+fragment.Encode())
}
