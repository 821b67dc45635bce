package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/domain/services"
	"fieldtrack-http-service/internal/domain/services/container"
	"fieldtrack-http-service/internal/error/code"
	"fieldtrack-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// locationUpdatePayload 位置上报事件的载荷
type locationUpdatePayload struct {
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Accuracy   float64            `json:"accuracy"`
	Speed      *float64           `json:"speed,omitempty"`
	Heading    *float64           `json:"heading,omitempty"`
	Battery    *int               `json:"battery,omitempty"`
	Status     models.AgentStatus `json:"status,omitempty"`
	ZoneID     *uint              `json:"zone_id,omitempty"`
	CapturedAt *time.Time         `json:"captured_at,omitempty"`
}

// emergencyAlertPayload 紧急警报事件的载荷
type emergencyAlertPayload struct {
	Type        models.AlertType     `json:"type"`
	Priority    models.AlertPriority `json:"priority,omitempty"`
	Description string               `json:"description"`
	Latitude    *float64             `json:"latitude,omitempty"`
	Longitude   *float64             `json:"longitude,omitempty"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type statusUpdatePayload struct {
	Status models.AgentStatus `json:"status"`
}

type messageReadPayload struct {
	AlertUUID string `json:"alert_uuid"`
}

type reactionPayload struct {
	AlertUUID string `json:"alert_uuid"`
	Reaction  string `json:"reaction"`
}

// HandleWebSocket 处理WebSocket连接：鉴权 → 升级 → 登记会话 →
// 重建房间成员关系 → 冲刷离线通知 → 进入消息循环。
// @Summary WebSocket实时通道
// @Description 通过 ?token=JWT 鉴权后建立实时双向通道
// @Tags websocket
// @Param token query string true "JWT令牌"
// @Router /ws [get]
func HandleWebSocket(ctn *container.ServiceContainer, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtService := ctn.GetService("jwt").(services.InterfaceJWTService)

		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"code": code.ErrTokenInvalid, "message": "缺少令牌"})
			return
		}
		userID, role, err := jwtService.ParseUserID(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"code": code.ErrTokenInvalid, "message": "令牌无效"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("WebSocket升级失败: user=%d err=%v", userID, err)
			return
		}

		session := hub.NewSession(userID, role, conn)
		go session.WriteLoop()
		defer func() {
			hub.Unregister(session)
			conn.Close()
			logger.Info("WebSocket断开: user=%d role=%s", userID, role)
		}()

		logger.Info("WebSocket连接建立: user=%d role=%s", userID, role)

		rebuildRooms(ctn, hub, session)
		flushOfflineQueue(ctn, session)

		sendEvent(session, "connected", gin.H{
			"user_id": userID,
			"role":    role,
		})

		readLoop(ctn, hub, session)
	}
}

// rebuildRooms 按角色与当班信息重建房间成员关系，成员关系只存在于内存中
func rebuildRooms(ctn *container.ServiceContainer, hub *Hub, session *Session) {
	hub.JoinRoom(session, "role:"+string(session.Role))

	if session.Role != models.RoleAgent {
		return
	}
	shiftService := ctn.GetService("shift").(services.InterfaceShiftService)
	shift, err := shiftService.GetActiveShift(session.UserID)
	if err != nil {
		logger.Warning("查询当班信息失败: agent=%d err=%v", session.UserID, err)
		return
	}
	if shift != nil {
		hub.JoinRoom(session, fmt.Sprintf("zone:%d", shift.ZoneID))
	}
}

// flushOfflineQueue 连接建立时冲刷离线期间积压的通知
func flushOfflineQueue(ctn *container.ServiceContainer, session *Session) {
	redisService := ctn.GetService("redis").(services.InterfaceRedisService)

	items, err := redisService.FlushOfflineNotifications(session.UserID, ctn.GetConfig().OfflineQueueTTL)
	if err != nil {
		logger.Warning("离线通知队列冲刷失败: user=%d err=%v", session.UserID, err)
		return
	}
	for _, item := range items {
		var queued struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal([]byte(item), &queued); err != nil {
			logger.Warning("离线通知格式异常，已跳过: user=%d err=%v", session.UserID, err)
			continue
		}
		sendEvent(session, queued.Event, queued.Payload)
	}
	if len(items) > 0 {
		logger.Info("离线通知冲刷完成: user=%d count=%d", session.UserID, len(items))
	}
}

// readLoop 消息循环：逐条读取并分发，格式错误回送error事件而不断开
func readLoop(ctn *container.ServiceContainer, hub *Hub, session *Session) {
	for {
		_, raw, err := session.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warning("WebSocket读取异常: user=%d err=%v", session.UserID, err)
			}
			return
		}
		session.Touch()

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			sendError(session, "消息格式错误")
			continue
		}
		dispatchEvent(ctn, hub, session, &event)
	}
}

func dispatchEvent(ctn *container.ServiceContainer, hub *Hub, session *Session, event *Event) {
	switch event.Type {
	case "location_update":
		handleLocationUpdate(ctn, session, event.Payload)
	case "emergency_alert":
		handleEmergencyAlert(ctn, session, event.Payload)
	case "status_update":
		handleStatusUpdate(ctn, hub, session, event.Payload)
	case "join_room":
		handleJoinRoom(hub, session, event.Payload)
	case "leave_room":
		handleLeaveRoom(hub, session, event.Payload)
	case "message_read":
		handleMessageRead(session, event.Payload)
	case "reaction":
		handleReaction(hub, session, event.Payload)
	case "ping":
		sendEvent(session, "pong", gin.H{"time": time.Now().UnixMilli()})
	default:
		sendError(session, "未知的消息类型: "+event.Type)
	}
}

// handleLocationUpdate 实时通道上的位置上报，与REST接入走同一条管道
func handleLocationUpdate(ctn *container.ServiceContainer, session *Session, payload json.RawMessage) {
	var req locationUpdatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		sendError(session, "位置上报载荷格式错误")
		return
	}

	sample := &models.LocationSample{
		AgentID:   session.UserID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Heading:   req.Heading,
		Battery:   req.Battery,
		Status:    req.Status,
		ZoneID:    req.ZoneID,
	}
	if req.CapturedAt != nil {
		sample.CapturedAt = *req.CapturedAt
	} else {
		sample.CapturedAt = time.Now()
	}
	if sample.Status == "" {
		sample.Status = models.AgentStatusActive
	}

	locationService := ctn.GetService("location").(services.InterfaceLocationService)
	degraded, err := locationService.IngestLocation(sample)
	if err != nil {
		sendError(session, err.Error())
		return
	}
	sendEvent(session, "location_ack", gin.H{
		"sample_id":   sample.ID,
		"captured_at": sample.CapturedAt,
		"degraded":    degraded,
	})
}

// handleEmergencyAlert 实时通道上的一键报警
func handleEmergencyAlert(ctn *container.ServiceContainer, session *Session, payload json.RawMessage) {
	var req emergencyAlertPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		sendError(session, "警报载荷格式错误")
		return
	}
	if req.Type == "" {
		req.Type = models.AlertTypeGeneral
	}
	if req.Priority == "" {
		req.Priority = models.PriorityHigh
	}

	alert := &models.EmergencyAlert{
		Type:        req.Type,
		Priority:    req.Priority,
		AgentID:     session.UserID,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Description: req.Description,
	}

	escalationService := ctn.GetService("escalation").(services.InterfaceEscalationService)
	if err := escalationService.CreateAlert(alert); err != nil {
		logger.Error("实时通道创建警报失败: agent=%d err=%v", session.UserID, err)
		sendError(session, "警报创建失败")
		return
	}
	sendEvent(session, "alert_created", gin.H{
		"uuid":             alert.UUID,
		"status":           alert.Status,
		"escalation_level": alert.EscalationLevel,
	})
}

// handleStatusUpdate 人员状态变更：覆盖缓存中的状态并通知主管端
func handleStatusUpdate(ctn *container.ServiceContainer, hub *Hub, session *Session, payload json.RawMessage) {
	var req statusUpdatePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Status == "" {
		sendError(session, "状态载荷格式错误")
		return
	}

	redisService := ctn.GetService("redis").(services.InterfaceRedisService)
	cfg := ctn.GetConfig()

	pos, err := redisService.GetCurrentPosition(session.UserID)
	if err == nil && pos != nil {
		pos.Status = req.Status
		pos.UpdatedAt = time.Now()
		if err := redisService.SetCurrentPosition(pos, cfg.CurrentPositionTTL); err != nil {
			logger.Warning("状态更新写缓存失败: agent=%d err=%v", session.UserID, err)
		}
	}

	hub.BroadcastToRoom("role:supervisor", "agent_status", gin.H{
		"agent_id": session.UserID,
		"status":   req.Status,
	})
	sendEvent(session, "status_ack", gin.H{"status": req.Status})
}

func handleJoinRoom(hub *Hub, session *Session, payload json.RawMessage) {
	var req roomPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Room == "" {
		sendError(session, "房间载荷格式错误")
		return
	}
	// 角色房间在连接时按令牌分配，不允许自行加入他人的角色房间
	if strings.HasPrefix(req.Room, "role:") && req.Room != "role:"+string(session.Role) {
		sendError(session, "无权加入该房间")
		return
	}
	hub.JoinRoom(session, req.Room)
	sendEvent(session, "room_joined", gin.H{"room": req.Room})
}

func handleLeaveRoom(hub *Hub, session *Session, payload json.RawMessage) {
	var req roomPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Room == "" {
		sendError(session, "房间载荷格式错误")
		return
	}
	hub.LeaveRoom(session, req.Room)
	sendEvent(session, "room_left", gin.H{"room": req.Room})
}

func handleMessageRead(session *Session, payload json.RawMessage) {
	var req messageReadPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.AlertUUID == "" {
		sendError(session, "已读回执载荷格式错误")
		return
	}
	logger.Info("通知已读: user=%d alert=%s", session.UserID, req.AlertUUID)
	sendEvent(session, "message_read_ack", gin.H{"alert_uuid": req.AlertUUID})
}

func handleReaction(hub *Hub, session *Session, payload json.RawMessage) {
	var req reactionPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.AlertUUID == "" {
		sendError(session, "反应载荷格式错误")
		return
	}
	hub.BroadcastToRoom("role:supervisor", "reaction", gin.H{
		"alert_uuid": req.AlertUUID,
		"reaction":   req.Reaction,
		"from":       session.UserID,
	})
	sendEvent(session, "reaction_ack", gin.H{"alert_uuid": req.AlertUUID})
}

func sendEvent(session *Session, event string, payload interface{}) {
	data, err := marshalResponse(event, payload)
	if err != nil {
		logger.Error("序列化事件失败: event=%s err=%v", event, err)
		return
	}
	session.enqueue(data)
}

func sendError(session *Session, message string) {
	sendEvent(session, "error", gin.H{"message": message})
}
