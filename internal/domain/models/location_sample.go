package models

import "time"

// AgentStatus 上报时的人员状态
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusBreak   AgentStatus = "break"
	AgentStatusOffline AgentStatus = "offline"
)

// LocationSample 表示一次GPS上报采样，写入后不可变，仅由保留策略清理
type LocationSample struct {
	BaseModel
	AgentID    uint        `gorm:"not null;index:idx_agent_captured" json:"agent_id"`
	Latitude   float64     `gorm:"not null" json:"latitude"`
	Longitude  float64     `gorm:"not null" json:"longitude"`
	Accuracy   float64     `gorm:"not null" json:"accuracy"` // GPS精度，单位米
	Speed      *float64    `json:"speed,omitempty"`          // 速度，单位km/h，可选
	Heading    *float64    `json:"heading,omitempty"`        // 朝向，单位度，可选
	Battery    *int        `json:"battery,omitempty"`        // 电量百分比，可选
	Status     AgentStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	ZoneID     *uint       `json:"zone_id,omitempty"` // 客户端声明的站点，可选
	CapturedAt time.Time   `gorm:"index:idx_agent_captured" json:"captured_at"`
}

// CurrentPosition 当前位置缓存条目（Redis中按人员ID存储，带TTL）
type CurrentPosition struct {
	AgentID    uint        `json:"agent_id"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Accuracy   float64     `json:"accuracy"`
	Speed      *float64    `json:"speed,omitempty"`
	Heading    *float64    `json:"heading,omitempty"`
	Battery    *int        `json:"battery,omitempty"`
	Status     AgentStatus `json:"status"`
	CapturedAt time.Time   `json:"captured_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
