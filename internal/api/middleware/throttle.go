package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
)

// Throttle 按 scope 限制请求频率：登录用户按用户 ID，匿名按客户端 IP；管理员不受限制
func Throttle(limiter *ratelimit.Limiter, scope string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor.IsStaff || limit <= 0 {
			c.Next()
			return
		}

		ident := "ip:" + c.ClientIP()
		if actor.IsAuthenticated() {
			ident = "user:" + actor.UserID
		}

		result, err := limiter.Allow(c.Request.Context(), scope, ident, limit)
		if err != nil {
			// Redis 不可用时放行
			logger.For(c.Request.Context()).WithError(err).WithField("scope", scope).Warn("throttle check failed")
			c.Next()
			return
		}

		if !result.Allowed {
			logger.For(c.Request.Context()).WithFields(logrus.Fields{
				"scope": scope,
				"ident": ident,
				"count": result.Count,
			}).Info("request throttled")
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			response.TooManyRequestsError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
