package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger 为每个请求分配 request id，把带字段的 logger 放入 context，结束时记录一行访问日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		entry := logger.Base().WithField("request_id", requestID)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), entry))

		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if userID, ok := GetUserID(c); ok {
			fields["user_id"] = userID
		}

		log := entry.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request")
		case status >= 400:
			log.Warn("request")
		default:
			log.Info("request")
		}
	}
}

// Recovery 捕获 panic，上报 sentry 并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		ctx := sentry.SetHubOnContext(c.Request.Context(), hub)
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			if err := recover(); err != nil {
				if hub.Client() != nil {
					hub.RecoverWithContext(ctx, err)
				}
				logger.For(ctx).WithField("panic", err).Error("recovered from panic")
				response.ServerError(c, "")
				c.Abort()
			}
		}()

		c.Next()
	}
}
