package models

import "time"

// NotifyChannel 通知通道
type NotifyChannel string

const (
	ChannelInApp NotifyChannel = "in_app" // WebSocket实时推送，离线则入队
	ChannelPush  NotifyChannel = "push"   // MQTT推送
	ChannelEmail NotifyChannel = "email"
	ChannelSMS   NotifyChannel = "sms"
)

// AlertNotification 表示警报某一层级向某一接收方经某一通道的一次投递记录。
// 单条投递失败只记录在本条上，不影响其他接收方或通道。
type AlertNotification struct {
	BaseModel
	AlertID       uint          `gorm:"not null;index" json:"alert_id"`
	Level         int           `gorm:"not null" json:"level"`
	Channel       NotifyChannel `gorm:"type:varchar(10);not null" json:"channel"`
	RecipientID   *uint         `json:"recipient_id,omitempty"`              // 系统用户接收方
	RecipientAddr string        `gorm:"type:varchar(100)" json:"recipient_addr,omitempty"` // 邮箱/手机号等外部地址
	Success       bool          `gorm:"default:false" json:"success"`
	Error         string        `gorm:"type:varchar(255)" json:"error,omitempty"`
	SentAt        time.Time     `json:"sent_at"`
}
