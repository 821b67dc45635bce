package models

// UserRole 用户角色
type UserRole string

const (
	RoleAdmin      UserRole = "admin"      // 系统管理员
	RoleSupervisor UserRole = "supervisor" // 现场主管
	RoleAgent      UserRole = "agent"      // 安保人员
)

// UserStatus 用户状态
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User 表示系统用户（管理员、主管、安保人员）
type User struct {
	BaseModel
	Username string     `gorm:"type:varchar(50);unique;not null" json:"username"`
	Password string     `gorm:"type:varchar(100);not null" json:"-"` // bcrypt哈希，不序列化
	Name     string     `gorm:"type:varchar(50)" json:"name"`
	Phone    string     `gorm:"type:varchar(20)" json:"phone"`
	Email    string     `gorm:"type:varchar(100)" json:"email"`
	Role     UserRole   `gorm:"type:varchar(20);not null;index" json:"role"`
	Status   UserStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
}
