package models

import "time"

// AlertType 警报类型
type AlertType string

const (
	AlertTypePanic    AlertType = "panic"
	AlertTypeMedical  AlertType = "medical"
	AlertTypeSecurity AlertType = "security"
	AlertTypeFire     AlertType = "fire"
	AlertTypeGeneral  AlertType = "general"
	AlertTypeGeofence AlertType = "geofence"
)

// AlertPriority 警报优先级
type AlertPriority string

const (
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// AlertStatus 警报状态
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
	AlertStatusFalseAlarm   AlertStatus = "FALSE_ALARM"
)

// IsTerminal 判断状态是否为终态
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved || s == AlertStatusFalseAlarm
}

// EmergencyAlert 表示一条带升级生命周期的紧急警报。
// 升级层级从1开始单调递增，不超过配置的最大层级。
type EmergencyAlert struct {
	BaseModel
	UUID            string        `gorm:"type:varchar(36);unique;not null" json:"uuid"`
	Type            AlertType     `gorm:"type:varchar(20);not null" json:"type"`
	Priority        AlertPriority `gorm:"type:varchar(10);default:'high'" json:"priority"`
	AgentID         uint          `gorm:"not null;index" json:"agent_id"`
	ViolationID     *uint         `json:"violation_id,omitempty"` // 由越界触发时关联的越界记录
	Latitude        *float64      `json:"latitude,omitempty"`
	Longitude       *float64      `json:"longitude,omitempty"`
	Description     string        `gorm:"type:text" json:"description"`
	Status          AlertStatus   `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status"`
	EscalationLevel int           `gorm:"default:1" json:"escalation_level"`
	AcknowledgedBy  *uint         `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedBy      *uint         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	Resolution      string        `gorm:"type:text" json:"resolution,omitempty"`

	// Relations
	Agent         *User               `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Violation     *Violation          `gorm:"foreignKey:ViolationID" json:"violation,omitempty"`
	Notifications []AlertNotification `gorm:"foreignKey:AlertID" json:"notifications,omitempty"`
}
