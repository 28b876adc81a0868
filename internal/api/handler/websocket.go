package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/pec_go_server/internal/pkg/jwt"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/pkg/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 身份由 token 参数校验
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// Moderation 管理员订阅评论审核事件
// GET /api/v1/ws/moderation?token=xxx
func (h *WebSocketHandler) Moderation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.AuthError(c, "请提供认证信息")
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil || claims.TokenType != jwt.TypeAccess {
		response.AuthError(c, "认证失败或已过期")
		return
	}
	if !claims.IsStaff {
		response.PermissionError(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.For(c.Request.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &ws.Client{
		UserID:  claims.UserID,
		IsStaff: true,
		Conn:    conn,
	}

	h.hub.Register(client)

	// 只读取以检测断开
	go func() {
		defer func() {
			h.hub.Unregister(client)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Relay 把 Redis 上的审核事件转发给在线管理员
func (h *WebSocketHandler) Relay(msg *pubsub.ModerationMessage) {
	sent, err := h.hub.SendToStaff(&ws.Message{Type: msg.Type, Data: msg})
	if err != nil {
		logger.Base().WithError(err).Warn("relay moderation event failed")
		return
	}
	logger.Base().WithField("type", msg.Type).WithField("connections", sent).Debug("moderation event relayed")
}
