package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/ratelimit"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InboundMessage 클라이언트 -> 서버 메시지
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageHandler 수신 메시지 처리기 (매치 코디네이터가 구현)
type MessageHandler interface {
	HandleMessage(ctx context.Context, identity models.Identity, msg InboundMessage)
	HandleDisconnect(identity models.Identity)
}

// Client WebSocket 클라이언트
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan *Message
	identity models.Identity
	handler  MessageHandler
	limiter  *ratelimit.RateLimiter
	logger   *zap.Logger

	// hub.mu 로 보호
	evicted  bool
	replaced bool
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, conn *websocket.Conn, identity models.Identity, handler MessageHandler, limiter *ratelimit.RateLimiter) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan *Message, sendBufferSize),
		identity: identity,
		handler:  handler,
		limiter:  limiter,
		logger:   hub.logger.With(zap.String("userId", identity.UserID)),
	}
}

// Identity 연결의 사용자 정보
func (c *Client) Identity() models.Identity {
	return c.identity
}

// Send 수신 대기 채널 (테스트 및 writePump 용)
func (c *Client) Send() <-chan *Message {
	return c.send
}

// readPump 클라이언트 메시지를 읽어 핸들러에 전달
// 연결이 끊기면 핸들러에 disconnect 를 알린다 (명시적 leave 와 동일 취급).
func (c *Client) readPump() {
	defer func() {
		if c.hub.Unregister(c) {
			c.handler.HandleDisconnect(c.identity)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		c.dispatch(data)
	}
}

// dispatch 메시지 하나를 해석해 처리 (같은 연결의 메시지는 순서대로 완료까지 처리)
func (c *Client) dispatch(data []byte) {
	if c.limiter != nil && !c.limiter.Allow(c.identity.UserID) {
		c.hub.SendToUser(c.identity.UserID, "rate_limited", map[string]string{
			"message": "Too many messages, slow down",
		})
		return
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		c.logger.Debug("Malformed client message", zap.ByteString("data", data))
		c.hub.SendToUser(c.identity.UserID, "error", map[string]string{
			"message": "malformed message",
		})
		return
	}

	c.handler.HandleMessage(context.Background(), c.identity, msg)
}

// writePump Hub로부터 메시지를 받아 클라이언트에게 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal message",
					zap.String("type", message.Type),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs WebSocket 연결 업그레이드 및 클라이언트 시작
func ServeWs(hub *Hub, handler MessageHandler, limiter *ratelimit.RateLimiter, w http.ResponseWriter, r *http.Request, identity models.Identity) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, conn, identity, handler, limiter)
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
