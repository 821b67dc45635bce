package services

import (
	"errors"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"

	"gorm.io/gorm"
)

// InterfaceShiftService 定义排班服务接口
type InterfaceShiftService interface {
	GetActiveShift(agentID uint) (*models.ShiftAssignment, error)
	CreateShift(shift *models.ShiftAssignment) error
	StartShift(id uint) error
	EndShift(id uint) error
	GetShiftsByAgent(agentID uint, page, pageSize int) ([]models.ShiftAssignment, int64, error)
}

// ShiftService 提供排班相关服务。
// 排班本身由外部管理端维护，本服务只暴露围栏评估所需的最小边界。
type ShiftService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewShiftService 创建新的排班服务
func NewShiftService(db *gorm.DB, cfg *config.Config) InterfaceShiftService {
	return &ShiftService{
		DB:     db,
		Config: cfg,
	}
}

// GetActiveShift 获取人员当前进行中的排班；没有则返回nil（不是错误）
func (s *ShiftService) GetActiveShift(agentID uint) (*models.ShiftAssignment, error) {
	var shift models.ShiftAssignment
	now := time.Now()

	err := s.DB.Where("agent_id = ? AND status = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)",
		agentID, models.ShiftStatusActive, now, now).
		Order("starts_at DESC").
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &shift, nil
}

// CreateShift 创建排班
func (s *ShiftService) CreateShift(shift *models.ShiftAssignment) error {
	if shift.Status == "" {
		shift.Status = models.ShiftStatusScheduled
	}
	return s.DB.Create(shift).Error
}

// StartShift 将排班置为进行中
func (s *ShiftService) StartShift(id uint) error {
	result := s.DB.Model(&models.ShiftAssignment{}).
		Where("id = ? AND status = ?", id, models.ShiftStatusScheduled).
		Update("status", models.ShiftStatusActive)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("排班不存在或状态不允许开始")
	}
	return nil
}

// EndShift 结束排班
func (s *ShiftService) EndShift(id uint) error {
	now := time.Now()
	result := s.DB.Model(&models.ShiftAssignment{}).
		Where("id = ? AND status = ?", id, models.ShiftStatusActive).
		Updates(map[string]interface{}{
			"status":  models.ShiftStatusCompleted,
			"ends_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("排班不存在或状态不允许结束")
	}
	return nil
}

// GetShiftsByAgent 获取某人员的排班列表，支持分页
func (s *ShiftService) GetShiftsByAgent(agentID uint, page, pageSize int) ([]models.ShiftAssignment, int64, error) {
	var shifts []models.ShiftAssignment
	var total int64

	query := s.DB.Model(&models.ShiftAssignment{}).Where("agent_id = ?", agentID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Preload("Zone").Order("starts_at DESC").
		Offset(offset).Limit(pageSize).Find(&shifts).Error; err != nil {
		return nil, 0, err
	}

	return shifts, total, nil
}
