package models

// GeofenceZone 表示站点的圆形电子围栏（中心点 + 允许半径）
type GeofenceZone struct {
	BaseModel
	Name      string  `gorm:"type:varchar(100);not null" json:"name"`
	SiteCode  string  `gorm:"type:varchar(50);unique;not null" json:"site_code"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Radius    float64 `gorm:"not null" json:"radius"` // 允许半径，单位米，必须 > 0
	Active    bool    `gorm:"default:true" json:"active"`
	Address   string  `gorm:"type:varchar(200)" json:"address,omitempty"`
}
