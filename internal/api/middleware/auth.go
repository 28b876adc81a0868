package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/pkg/jwt"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

const (
	UserIDKey  = "userID"
	IsStaffKey = "isStaff"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil || claims.TokenType != jwt.TypeAccess {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err == nil && claims.TokenType == jwt.TypeAccess {
			setClaims(c, claims)
		}

		c.Next()
	}
}

// StaffOnly 必须放在 Auth 之后
func StaffOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).IsStaff {
			response.PermissionError(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(IsStaffKey, claims.IsStaff)
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}

// GetActor 当前请求的操作者，未登录时为匿名
func GetActor(c *gin.Context) service.Actor {
	userID, ok := GetUserID(c)
	if !ok {
		return service.Anonymous
	}
	return service.Actor{UserID: userID, IsStaff: c.GetBool(IsStaffKey)}
}
