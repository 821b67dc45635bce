package models

import "time"

// ShiftStatus 排班状态
type ShiftStatus string

const (
	ShiftStatusScheduled ShiftStatus = "scheduled"
	ShiftStatusActive    ShiftStatus = "active"
	ShiftStatusCompleted ShiftStatus = "completed"
)

// ShiftAssignment 表示安保人员在某站点的排班。
// 围栏评估只在人员存在进行中的排班时发生。
type ShiftAssignment struct {
	BaseModel
	AgentID  uint        `gorm:"not null;index" json:"agent_id"`
	ZoneID   uint        `gorm:"not null;index" json:"zone_id"`
	Status   ShiftStatus `gorm:"type:varchar(20);default:'scheduled';index" json:"status"`
	StartsAt time.Time   `json:"starts_at"`
	EndsAt   *time.Time  `json:"ends_at,omitempty"`

	// Relations
	Agent *User         `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Zone  *GeofenceZone `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
}
