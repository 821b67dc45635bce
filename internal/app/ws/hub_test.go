package ws

import (
	"encoding/json"
	"testing"

	"fieldtrack-http-service/internal/domain/models"
)

// drain 读取会话缓冲中的一条消息并解析
func drain(t *testing.T, s *Session) *Response {
	t.Helper()
	select {
	case data := <-s.send:
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("解析消息失败: %v", err)
		}
		return &resp
	default:
		return nil
	}
}

// TestSendToUserDelivers 向有活跃会话的用户投递成功
func TestSendToUserDelivers(t *testing.T) {
	hub := NewHub()
	session := hub.NewSession(1, models.RoleAgent, nil)

	if !hub.SendToUser(1, "test_event", map[string]interface{}{"k": "v"}) {
		t.Fatal("有活跃会话时投递应返回true")
	}

	resp := drain(t, session)
	if resp == nil {
		t.Fatal("会话缓冲中应有一条消息")
	}
	if resp.Type != "test_event" {
		t.Errorf("事件类型应为test_event，实际为 %s", resp.Type)
	}
}

// TestSendToUserOffline 无活跃会话时返回false，由调用方转入离线队列
func TestSendToUserOffline(t *testing.T) {
	hub := NewHub()
	if hub.SendToUser(42, "test_event", nil) {
		t.Error("无活跃会话时投递应返回false")
	}
}

// TestSendToUserAfterUnregister 注销后视为离线
func TestSendToUserAfterUnregister(t *testing.T) {
	hub := NewHub()
	session := hub.NewSession(1, models.RoleAgent, nil)
	hub.Unregister(session)

	if hub.SendToUser(1, "test_event", nil) {
		t.Error("注销后投递应返回false")
	}
	if hub.OnlineUserCount() != 0 {
		t.Errorf("注销后在线用户数应为0，实际为 %d", hub.OnlineUserCount())
	}
}

// TestMultipleSessionsPerUser 同一用户的多条会话都收到消息
func TestMultipleSessionsPerUser(t *testing.T) {
	hub := NewHub()
	s1 := hub.NewSession(1, models.RoleAgent, nil)
	s2 := hub.NewSession(1, models.RoleAgent, nil)

	if !hub.SendToUser(1, "test_event", nil) {
		t.Fatal("投递应成功")
	}
	if drain(t, s1) == nil || drain(t, s2) == nil {
		t.Error("同一用户的每条会话都应收到消息")
	}
}

// TestBroadcastToRoom 房间广播只达房间成员
func TestBroadcastToRoom(t *testing.T) {
	hub := NewHub()
	member := hub.NewSession(1, models.RoleSupervisor, nil)
	outsider := hub.NewSession(2, models.RoleAgent, nil)
	hub.JoinRoom(member, "role:supervisor")

	hub.BroadcastToRoom("role:supervisor", "alert_update", map[string]interface{}{"uuid": "x"})

	if drain(t, member) == nil {
		t.Error("房间成员应收到广播")
	}
	if drain(t, outsider) != nil {
		t.Error("非房间成员不应收到广播")
	}
}

// TestBroadcastSlowConsumerDoesNotBlockOthers 单个塞满缓冲的会话不影响其他会话
func TestBroadcastSlowConsumerDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	stuck := hub.NewSession(1, models.RoleSupervisor, nil)
	healthy := hub.NewSession(2, models.RoleSupervisor, nil)
	hub.JoinRoom(stuck, "room")
	hub.JoinRoom(healthy, "room")

	// 填满卡死会话的缓冲
	for i := 0; i < sessionSendBuffer; i++ {
		stuck.enqueue([]byte("{}"))
	}

	done := make(chan struct{})
	go func() {
		hub.BroadcastToRoom("room", "alert_update", nil)
		close(done)
	}()

	select {
	case <-done:
	default:
		// 广播是非阻塞投递，应当同步完成
	}
	<-done

	if drain(t, healthy) == nil {
		t.Error("健康会话应收到广播")
	}
}

// TestLeaveRoom 退出房间后不再收到广播
func TestLeaveRoom(t *testing.T) {
	hub := NewHub()
	session := hub.NewSession(1, models.RoleAgent, nil)
	hub.JoinRoom(session, "zone:1")
	hub.LeaveRoom(session, "zone:1")

	hub.BroadcastToRoom("zone:1", "test_event", nil)
	if drain(t, session) != nil {
		t.Error("退出房间后不应收到广播")
	}
	if hub.RoomSize("zone:1") != 0 {
		t.Errorf("空房间的大小应为0，实际为 %d", hub.RoomSize("zone:1"))
	}
}

// TestUnregisterRemovesFromRooms 注销会话同时清理房间成员关系
func TestUnregisterRemovesFromRooms(t *testing.T) {
	hub := NewHub()
	session := hub.NewSession(1, models.RoleAgent, nil)
	hub.JoinRoom(session, "zone:3")

	hub.Unregister(session)
	if hub.RoomSize("zone:3") != 0 {
		t.Errorf("注销后房间应为空，实际大小为 %d", hub.RoomSize("zone:3"))
	}
}

// TestEnqueueAfterClose 已关闭的会话丢弃消息而不恐慌
func TestEnqueueAfterClose(t *testing.T) {
	hub := NewHub()
	session := hub.NewSession(1, models.RoleAgent, nil)
	hub.Unregister(session)

	if session.enqueue([]byte("{}")) {
		t.Error("关闭后入队应返回false")
	}
}
