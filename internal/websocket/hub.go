package websocket

import (
	"sync"

	"go.uber.org/zap"
)

// Hub WebSocket 연결 및 룸(매치) 단위 브로드캐스트 관리
//
// 모든 등록/룸 변경/브로드캐스트는 하나의 뮤텍스 아래에서 각 클라이언트의
// send 채널에 적재되므로, 한 연결이 받는 메시지 순서는 호출 순서와 같다.
type Hub struct {
	mu sync.Mutex

	// 사용자별 연결 (userID -> *Client), 사용자당 하나
	clients map[string]*Client

	// 룸별 멤버 (roomID -> userID set)
	rooms map[string]map[string]struct{}

	// 사용자별 현재 룸 (userID -> roomID)
	userRooms map[string]string

	logger *zap.Logger
}

// Message WebSocket 메시지
type Message struct {
	UserID  string      `json:"-"`       // 수신자
	Type    string      `json:"type"`    // 메시지 타입
	Payload interface{} `json:"payload"` // 메시지 내용
}

// NewHub Hub 생성
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:   make(map[string]*Client),
		rooms:     make(map[string]map[string]struct{}),
		userRooms: make(map[string]string),
		logger:    logger,
	}
}

// Register 클라이언트 등록 (기존 연결이 있으면 교체)
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.clients[client.identity.UserID]; exists && old != client {
		if !old.evicted {
			close(old.send)
		}
		old.replaced = true
		h.logger.Info("Replaced existing WebSocket connection",
			zap.String("userId", client.identity.UserID))
	}

	h.clients[client.identity.UserID] = client
	h.logger.Info("WebSocket client registered",
		zap.String("userId", client.identity.UserID),
		zap.Int("totalClients", len(h.clients)))
}

// Unregister 클라이언트 해제
// 이 클라이언트가 사용자의 현재 연결이었으면 true (교체된 연결이면 false)
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.replaced {
		return false
	}

	current, exists := h.clients[client.identity.UserID]
	if exists && current == client {
		delete(h.clients, client.identity.UserID)
		close(client.send)
		h.logger.Info("WebSocket client unregistered",
			zap.String("userId", client.identity.UserID),
			zap.Int("totalClients", len(h.clients)))
		return true
	}

	// send 버퍼 초과로 이미 쫓겨난 연결
	return client.evicted && !exists
}

// Join 사용자를 룸에 추가 (다른 룸에 있었다면 그 매핑을 덮어씀)
func (h *Hub) Join(userID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.userRooms[userID]; ok {
		if prev == roomID {
			return
		}
		h.removeMemberLocked(userID, prev)
	}

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[userID] = struct{}{}
	h.userRooms[userID] = roomID

	h.logger.Debug("Joined room",
		zap.String("userId", userID),
		zap.String("roomId", roomID),
		zap.Int("members", len(members)))
}

// Leave 사용자를 현재 룸에서 제거 (빈 룸은 삭제)
func (h *Hub) Leave(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID, ok := h.userRooms[userID]
	if !ok {
		h.logger.Debug("Leave ignored, user has no room", zap.String("userId", userID))
		return
	}

	h.removeMemberLocked(userID, roomID)
	delete(h.userRooms, userID)
}

func (h *Hub) removeMemberLocked(userID, roomID string) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast 룸의 모든 연결에 메시지 전송
func (h *Hub) Broadcast(roomID, msgType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[roomID]
	if len(members) == 0 {
		h.logger.Warn("Broadcast to empty room",
			zap.String("roomId", roomID),
			zap.String("type", msgType))
		return
	}

	for userID := range members {
		h.deliverLocked(&Message{UserID: userID, Type: msgType, Payload: payload})
	}
}

// SendToUser 특정 사용자에게 메시지 전송
func (h *Hub) SendToUser(userID, msgType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliverLocked(&Message{UserID: userID, Type: msgType, Payload: payload})
}

func (h *Hub) deliverLocked(message *Message) {
	client, exists := h.clients[message.UserID]
	if !exists {
		h.logger.Debug("No live connection for user",
			zap.String("userId", message.UserID),
			zap.String("type", message.Type))
		return
	}

	select {
	case client.send <- message:
	default:
		// 채널이 가득 찬 경우 연결 해제
		h.logger.Warn("Client send channel full, evicting",
			zap.String("userId", message.UserID))
		delete(h.clients, message.UserID)
		client.evicted = true
		close(client.send)
	}
}

// RoomOf 사용자의 현재 룸
func (h *Hub) RoomOf(userID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID, ok := h.userRooms[userID]
	return roomID, ok
}

// RoomSize 룸 멤버 수
func (h *Hub) RoomSize(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[roomID])
}

// ClientCount 현재 연결 수
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}
