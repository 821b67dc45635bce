package models

import "time"

// ViolationSeverity 越界严重程度
type ViolationSeverity string

const (
	SeverityLow    ViolationSeverity = "low"    // 超出半径不到50%
	SeverityMedium ViolationSeverity = "medium" // 超出半径不到100%
	SeverityHigh   ViolationSeverity = "high"   // 超出半径100%以上
)

// Violation 表示一次越界过程的记录。
// (agent_id, zone_id, open_flag) 上的唯一索引保证同一人员在同一围栏
// 至多存在一条未关闭记录；open_flag 在关闭时置为NULL以放行后续越界。
type Violation struct {
	BaseModel
	AgentID      uint              `gorm:"not null;uniqueIndex:idx_agent_zone_open" json:"agent_id"`
	ZoneID       uint              `gorm:"not null;uniqueIndex:idx_agent_zone_open" json:"zone_id"`
	OpenFlag     *bool             `gorm:"uniqueIndex:idx_agent_zone_open" json:"-"`
	SampleID     uint              `json:"sample_id"` // 触发越界的采样
	Distance     float64           `json:"distance"`  // 触发时与中心点的距离，单位米
	LastDistance float64           `json:"last_distance"`
	Severity     ViolationSeverity `gorm:"type:varchar(10)" json:"severity"`
	DetectedAt   time.Time         `json:"detected_at"`
	ResolvedAt   *time.Time        `json:"resolved_at,omitempty"`

	// Relations
	Agent *User         `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Zone  *GeofenceZone `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
}

// IsOpen 判断该越界过程是否仍未结束
func (v *Violation) IsOpen() bool {
	return v.OpenFlag != nil && *v.OpenFlag
}
