package models

import "time"

// EscalationSchedule 表示一条已持久化的升级定时任务。
// 只在警报处于ACTIVE期间存在；确认、关闭或成功触发后删除。
// 持久化保证进程重启后待触发的升级不会丢失。
type EscalationSchedule struct {
	BaseModel
	AlertID     uint      `gorm:"not null;index" json:"alert_id"`
	TargetLevel int       `gorm:"not null" json:"target_level"`
	FireAt      time.Time `gorm:"not null;index" json:"fire_at"`
}
