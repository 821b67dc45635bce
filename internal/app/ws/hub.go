package ws

import (
	"encoding/json"
	"sync"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/pkg/logger"

	"github.com/gorilla/websocket"
)

// Event 客户端发来的JSON消息格式
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Response 发回客户端的JSON消息
type Response struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// 会话发送缓冲大小；写满视为消费过慢，该条消息对该会话丢弃
const sessionSendBuffer = 64

// Session 一条活跃的WebSocket会话。
// 房间成员关系每次连接时重建，从不落盘。
type Session struct {
	UserID   uint
	Role     models.UserRole
	Conn     *websocket.Conn
	send     chan []byte
	rooms    map[string]bool
	lastSeen time.Time
	mu       sync.Mutex
	closed   bool
}

// Touch 更新会话的活跃时间戳
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen 返回会话最近活跃时间
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// enqueue 非阻塞投递：缓冲已满说明消费方卡住，丢弃该条并返回false。
// 单个卡死的会话不能拖慢对其他会话的投递。
func (s *Session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close 关闭发送通道，幂等
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// WriteLoop 会话专属的写协程，串行化对底层连接的写入
func (s *Session) WriteLoop() {
	for data := range s.send {
		if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warning("websocket写入失败: user=%d err=%v", s.UserID, err)
			return
		}
	}
}

// Hub 活跃会话登记处：按用户ID与房间键索引。
// 实现 services.LiveSender。
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Session]struct{}
	rooms  map[string]map[*Session]struct{}
}

// NewHub 创建新的连接中心
func NewHub() *Hub {
	return &Hub{
		byUser: make(map[uint]map[*Session]struct{}),
		rooms:  make(map[string]map[*Session]struct{}),
	}
}

// NewSession 创建会话并完成登记
func (h *Hub) NewSession(userID uint, role models.UserRole, conn *websocket.Conn) *Session {
	session := &Session{
		UserID:   userID,
		Role:     role,
		Conn:     conn,
		send:     make(chan []byte, sessionSendBuffer),
		rooms:    make(map[string]bool),
		lastSeen: time.Now(),
	}

	h.mu.Lock()
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Session]struct{})
	}
	h.byUser[userID][session] = struct{}{}
	h.mu.Unlock()

	return session
}

// Unregister 注销会话并退出所有房间
func (h *Hub) Unregister(session *Session) {
	h.mu.Lock()
	if sessions, ok := h.byUser[session.UserID]; ok {
		delete(sessions, session)
		if len(sessions) == 0 {
			delete(h.byUser, session.UserID)
		}
	}
	for room := range session.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, session)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()

	session.close()
}

// JoinRoom 将会话加入房间
func (h *Hub) JoinRoom(session *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Session]struct{})
	}
	h.rooms[room][session] = struct{}{}
	session.rooms[room] = true
}

// LeaveRoom 将会话移出房间
func (h *Hub) LeaveRoom(session *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, session)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(session.rooms, room)
}

// SendToUser 向某用户的所有活跃会话投递事件。
// 无任何活跃会话时返回false，离线投递由通知分发器负责。
func (h *Hub) SendToUser(userID uint, event string, payload interface{}) bool {
	data, err := marshalResponse(event, payload)
	if err != nil {
		logger.Error("序列化事件失败: event=%s err=%v", event, err)
		return false
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.byUser[userID]))
	for s := range h.byUser[userID] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return false
	}

	delivered := false
	for _, s := range sessions {
		if s.enqueue(data) {
			delivered = true
		}
	}
	return delivered
}

// BroadcastToRoom 向房间内所有会话投递事件，逐会话尽力而为。
// 投递在读锁之外进行，单个会话的状态不影响其他会话。
func (h *Hub) BroadcastToRoom(room string, event string, payload interface{}) {
	data, err := marshalResponse(event, payload)
	if err != nil {
		logger.Error("序列化事件失败: event=%s err=%v", event, err)
		return
	}

	h.mu.RLock()
	members := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if !s.enqueue(data) {
			logger.Warning("房间广播丢弃: room=%s user=%d (消费过慢或已关闭)", room, s.UserID)
		}
	}
}

// OnlineUserCount 当前有活跃会话的用户数
func (h *Hub) OnlineUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}

// RoomSize 某房间的当前会话数
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func marshalResponse(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(Response{
		Type:      event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}
