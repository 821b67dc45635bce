package models

// EmergencyContact 紧急联系人（第3级升级的短信/邮件接收方）
type EmergencyContact struct {
	BaseModel
	Name     string `gorm:"type:varchar(50);not null" json:"name"`
	Phone    string `gorm:"type:varchar(20)" json:"phone"`
	Email    string `gorm:"type:varchar(100)" json:"email"`
	Role     string `gorm:"type:varchar(30)" json:"role"` // 如：警察、医院、公司值班经理等
	Priority int    `gorm:"default:0" json:"priority"`
}
