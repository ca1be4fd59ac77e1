package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 负责处理 WebSocket 鉴权与导出通知转发。
type WsHandler struct {
	redisClient    redis.UniversalClient
	tokens         middleware.TokenValidator
	upgrader       websocket.Upgrader
	allowedOrigins []string
	authTimeout    time.Duration
	pingInterval   time.Duration
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient redis.UniversalClient, tokens middleware.TokenValidator, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		tokens:         tokens,
		allowedOrigins: allowedOrigins,
		authTimeout:    wsAuthTimeout,
		pingInterval:   wsPingInterval,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 负责升级连接并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	baseLog := middleware.LoggerFromContext(c).With(
		slog.String("client_ip", c.ClientIP()),
	)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		baseLog.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 客户端必须在限定时间内发送鉴权消息
	_ = conn.SetReadDeadline(time.Now().Add(h.authTimeout))

	userIDCh := make(chan uint, 1)
	errCh := make(chan error, 1)

	go h.readLoop(ctx, conn, userIDCh, errCh, cancel, baseLog)

	var userID uint
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		}
		return
	case userID = <-userIDCh:
	}
	_ = conn.SetReadDeadline(time.Time{})

	userLog := baseLog.With(slog.Uint64("user_id", uint64(userID)))
	go h.subscribeLoop(ctx, conn, userID, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			userLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			userLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userIDCh chan<- uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if !authenticated && errors.As(err, &netErr) && netErr.Timeout() {
				writeClose(conn, websocket.ClosePolicyViolation, "auth timeout")
			} else {
				writeClose(conn, websocket.CloseGoingAway, "read error")
			}
			report(errCh, fmt.Errorf("read message: %w", err))
			cancel()
			return
		}

		if !authenticated {
			var authMsg wsAuthMessage
			if err := json.Unmarshal(message, &authMsg); err != nil {
				writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
				report(errCh, fmt.Errorf("decode auth payload: %w", err))
				cancel()
				return
			}
			if authMsg.Type != "auth" || authMsg.Token == "" {
				writeClose(conn, websocket.ClosePolicyViolation, "auth required")
				report(errCh, fmt.Errorf("invalid auth message"))
				cancel()
				return
			}

			claims, err := h.tokens.ValidateToken(authMsg.Token, auth.TokenTypeAccess)
			if err != nil {
				writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
				report(errCh, fmt.Errorf("validate token: %w", err))
				cancel()
				return
			}

			authenticated = true
			userIDCh <- claims.UserID
			log.Info("websocket authenticated", slog.Uint64("user_id", uint64(claims.UserID)))
			continue
		}

		// 鉴权后的消息忽略，继续读取以感知客户端断开。
	}
}

// report 不阻塞：另一侧已退出时丢弃错误。
func report(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userID uint,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				report(errCh, fmt.Errorf("pubsub channel closed"))
				cancel()
				return
			}

			log.Debug("forwarding message to client", slog.String("channel", channel))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				report(errCh, fmt.Errorf("write message: %w", err))
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				report(errCh, fmt.Errorf("write ping: %w", err))
				cancel()
				return
			}
		}
	}
}
