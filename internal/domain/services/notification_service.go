package services

import (
	"fmt"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	"gorm.io/gorm"
)

// LiveSender 实时通道的发送端，由WebSocket连接中心实现。
// SendToUser 仅在用户存在活跃会话时投递并返回true。
type LiveSender interface {
	SendToUser(userID uint, event string, payload interface{}) bool
	BroadcastToRoom(room string, event string, payload interface{})
}

// InterfaceNotificationService 定义通知分发服务接口
type InterfaceNotificationService interface {
	DispatchTier(alert *models.EmergencyAlert, tier EscalationTier) error
	NotifyAlertUpdate(alert *models.EmergencyAlert, event string)
	GetNotificationsByAlert(alertID uint) ([]models.AlertNotification, error)
}

// NotificationService 将警报按层级要求的通道集合扇出到接收方。
// 单个接收方、单个通道的失败彼此独立，只落在对应投递记录上。
type NotificationService struct {
	DB     *gorm.DB
	Config *config.Config
	Redis  InterfaceRedisService
	MQTT   InterfaceMQTTService
	Live   LiveSender

	// 邮件/短信发送函数，便于替换为真实网关
	EmailSender func(addr, subject, body string) error
	SMSSender   func(phone, body string) error
}

// NewNotificationService 创建新的通知分发服务
func NewNotificationService(db *gorm.DB, cfg *config.Config, redisSvc InterfaceRedisService, mqttSvc InterfaceMQTTService, live LiveSender) InterfaceNotificationService {
	s := &NotificationService{
		DB:     db,
		Config: cfg,
		Redis:  redisSvc,
		MQTT:   mqttSvc,
		Live:   live,
	}

	// 默认实现仅记录日志；接入真实网关时替换
	s.EmailSender = func(addr, subject, body string) error {
		logger.Info("发送警报邮件: to=%s subject=%s", addr, subject)
		return nil
	}
	s.SMSSender = func(phone, body string) error {
		logger.Info("发送警报短信: to=%s", phone)
		return nil
	}

	return s
}

// AlertEventPayload 构造警报通知的载荷
func AlertEventPayload(alert *models.EmergencyAlert) map[string]interface{} {
	payload := map[string]interface{}{
		"uuid":             alert.UUID,
		"type":             alert.Type,
		"priority":         alert.Priority,
		"agent_id":         alert.AgentID,
		"description":      alert.Description,
		"status":           alert.Status,
		"escalation_level": alert.EscalationLevel,
		"created_at":       alert.CreatedAt,
	}
	if alert.Latitude != nil && alert.Longitude != nil {
		payload["latitude"] = *alert.Latitude
		payload["longitude"] = *alert.Longitude
	}
	return payload
}

// DispatchTier 将某一升级层级扇出到该层级的接收方与通道。
// 每次投递独立记录成败；本方法只在无法确定接收方时返回错误。
func (s *NotificationService) DispatchTier(alert *models.EmergencyAlert, tier EscalationTier) error {
	payload := AlertEventPayload(alert)

	recipients, err := s.resolveRecipients(tier)
	if err != nil {
		return err
	}

	for _, user := range recipients {
		for _, channel := range tier.Channels {
			s.deliverToUser(alert, &user, channel, tier.Level, payload)
		}
	}

	// 紧急联系人只有外部地址，走邮件/短信通道
	if tier.IncludeContacts {
		var contacts []models.EmergencyContact
		if err := s.DB.Order("priority DESC").Find(&contacts).Error; err != nil {
			logger.Error("查询紧急联系人失败: %v", err)
		} else {
			for _, contact := range contacts {
				for _, channel := range tier.Channels {
					s.deliverToContact(alert, &contact, channel, tier.Level)
				}
			}
		}
	}

	return nil
}

// NotifyAlertUpdate 向相关房间广播警报状态变化（确认、关闭等）
func (s *NotificationService) NotifyAlertUpdate(alert *models.EmergencyAlert, event string) {
	payload := AlertEventPayload(alert)
	s.Live.BroadcastToRoom("role:supervisor", event, payload)
	s.Live.BroadcastToRoom("role:admin", event, payload)
}

// GetNotificationsByAlert 获取某警报的全部投递记录，按发送时间排序
func (s *NotificationService) GetNotificationsByAlert(alertID uint) ([]models.AlertNotification, error) {
	var records []models.AlertNotification
	if err := s.DB.Where("alert_id = ?", alertID).Order("sent_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// resolveRecipients 解析某层级的系统用户接收方
func (s *NotificationService) resolveRecipients(tier EscalationTier) ([]models.User, error) {
	if len(tier.Roles) == 0 {
		return nil, nil
	}

	var users []models.User
	if err := s.DB.Where("role IN ? AND status = ?", tier.Roles, models.UserStatusActive).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// deliverToUser 经单一通道向单一系统用户投递，结果写入投递记录
func (s *NotificationService) deliverToUser(alert *models.EmergencyAlert, user *models.User, channel models.NotifyChannel, level int, payload map[string]interface{}) {
	var deliverErr error

	switch channel {
	case models.ChannelInApp:
		if s.Live.SendToUser(user.ID, "emergency_alert", payload) {
			break
		}
		// 无活跃会话：入离线队列，下次连接时冲刷
		deliverErr = s.Redis.QueueOfflineNotification(user.ID, map[string]interface{}{
			"event":   "emergency_alert",
			"payload": payload,
		}, s.Config.OfflineQueueTTL)

	case models.ChannelPush:
		deliverErr = s.MQTT.PublishAlertToUser(user.ID, payload)

	case models.ChannelEmail:
		if user.Email == "" {
			deliverErr = fmt.Errorf("用户%d未配置邮箱", user.ID)
			break
		}
		deliverErr = s.EmailSender(user.Email, alertSubject(alert), alert.Description)

	case models.ChannelSMS:
		if user.Phone == "" {
			deliverErr = fmt.Errorf("用户%d未配置手机号", user.ID)
			break
		}
		deliverErr = s.SMSSender(user.Phone, alertSubject(alert))

	default:
		deliverErr = fmt.Errorf("不支持的通知通道: %s", channel)
	}

	userID := user.ID
	s.recordDelivery(&models.AlertNotification{
		AlertID:     alert.ID,
		Level:       level,
		Channel:     channel,
		RecipientID: &userID,
		Success:     deliverErr == nil,
		Error:       errString(deliverErr),
		SentAt:      time.Now(),
	})

	if deliverErr != nil {
		logger.Warning("警报通知投递失败: alert=%s user=%d channel=%s err=%v", alert.UUID, user.ID, channel, deliverErr)
	}
}

// deliverToContact 向紧急联系人投递，仅支持邮件/短信
func (s *NotificationService) deliverToContact(alert *models.EmergencyAlert, contact *models.EmergencyContact, channel models.NotifyChannel, level int) {
	var addr string
	var deliverErr error

	switch channel {
	case models.ChannelEmail:
		if contact.Email == "" {
			return
		}
		addr = contact.Email
		deliverErr = s.EmailSender(contact.Email, alertSubject(alert), alert.Description)

	case models.ChannelSMS:
		if contact.Phone == "" {
			return
		}
		addr = contact.Phone
		deliverErr = s.SMSSender(contact.Phone, alertSubject(alert))

	default:
		// 联系人没有系统账号，实时/推送通道不适用
		return
	}

	s.recordDelivery(&models.AlertNotification{
		AlertID:       alert.ID,
		Level:         level,
		Channel:       channel,
		RecipientAddr: addr,
		Success:       deliverErr == nil,
		Error:         errString(deliverErr),
		SentAt:        time.Now(),
	})

	if deliverErr != nil {
		logger.Warning("紧急联系人通知投递失败: alert=%s contact=%s channel=%s err=%v", alert.UUID, contact.Name, channel, deliverErr)
	}
}

// recordDelivery 写入投递记录；记录失败只记日志，不影响其他投递
func (s *NotificationService) recordDelivery(record *models.AlertNotification) {
	if err := s.DB.Create(record).Error; err != nil {
		logger.Error("写入投递记录失败: alert=%d channel=%s err=%v", record.AlertID, record.Channel, err)
	}
}

func alertSubject(alert *models.EmergencyAlert) string {
	return fmt.Sprintf("[紧急警报] %s (级别%d)", alert.Type, alert.EscalationLevel)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 255 {
		msg = msg[:255]
	}
	return msg
}
