package services

import (
	"errors"
	"strings"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	"gorm.io/gorm"
)

// InterfaceViolationService 定义越界记录服务接口
type InterfaceViolationService interface {
	RecordExcursion(sample *models.LocationSample, result *EvaluationResult) (*models.Violation, error)
	CloseOpenViolation(agentID, zoneID uint) (*models.Violation, error)
	GetOpenViolation(agentID, zoneID uint) (*models.Violation, error)
	GetViolationByID(id uint) (*models.Violation, error)
	GetViolations(agentID *uint, onlyOpen bool, page, pageSize int) ([]models.Violation, int64, error)
}

// ViolationService 负责越界过程的持久化。
// 同一越界过程只产生一条记录：(agent_id, zone_id, open_flag)
// 上的唯一索引把并发重复创建转化为可识别的冲突。
type ViolationService struct {
	DB     *gorm.DB
	Config *config.Config
}

// NewViolationService 创建新的越界记录服务
func NewViolationService(db *gorm.DB, cfg *config.Config) InterfaceViolationService {
	return &ViolationService{
		DB:     db,
		Config: cfg,
	}
}

// RecordExcursion 处理一次出界评估。
// 仅"入界→出界"的状态转换创建新记录并返回该记录；
// 持续出界只刷新最近距离，返回nil表示无需新警报。
func (s *ViolationService) RecordExcursion(sample *models.LocationSample, result *EvaluationResult) (*models.Violation, error) {
	// 已有未关闭记录则视为同一越界过程的延续
	existing, err := s.GetOpenViolation(sample.AgentID, result.ZoneID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.DB.Model(existing).Updates(map[string]interface{}{
			"last_distance": result.Distance,
			"severity":      result.Severity,
		}).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	open := true
	violation := &models.Violation{
		AgentID:      sample.AgentID,
		ZoneID:       result.ZoneID,
		OpenFlag:     &open,
		SampleID:     sample.ID,
		Distance:     result.Distance,
		LastDistance: result.Distance,
		Severity:     result.Severity,
		DetectedAt:   sample.CapturedAt,
	}

	if err := s.DB.Create(violation).Error; err != nil {
		// 并发的另一次评估抢先创建了记录：按"已处理"吸收，不向上抛错
		if isDuplicateKeyError(err) {
			logger.Warning("越界记录并发创建冲突，已由另一请求处理: agent=%d zone=%d", sample.AgentID, result.ZoneID)
			return nil, nil
		}
		return nil, err
	}

	return violation, nil
}

// CloseOpenViolation 人员重新入界时关闭未结束的越界记录。
// 关闭越界不会自动关闭关联的警报，警报需要人工处理。
func (s *ViolationService) CloseOpenViolation(agentID, zoneID uint) (*models.Violation, error) {
	violation, err := s.GetOpenViolation(agentID, zoneID)
	if err != nil {
		return nil, err
	}
	if violation == nil {
		return nil, nil
	}

	now := time.Now()
	if err := s.DB.Model(violation).Updates(map[string]interface{}{
		"resolved_at": &now,
		"open_flag":   nil, // 置NULL以放行该人员在该围栏的下一次越界
	}).Error; err != nil {
		return nil, err
	}

	violation.ResolvedAt = &now
	violation.OpenFlag = nil
	return violation, nil
}

// GetOpenViolation 获取某人员在某围栏的未关闭越界记录；没有返回nil
func (s *ViolationService) GetOpenViolation(agentID, zoneID uint) (*models.Violation, error) {
	var violation models.Violation
	err := s.DB.Where("agent_id = ? AND zone_id = ? AND open_flag = ?", agentID, zoneID, true).
		First(&violation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &violation, nil
}

// GetViolationByID 根据ID获取越界记录
func (s *ViolationService) GetViolationByID(id uint) (*models.Violation, error) {
	var violation models.Violation
	if err := s.DB.Preload("Agent").Preload("Zone").First(&violation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("越界记录不存在")
		}
		return nil, err
	}
	return &violation, nil
}

// GetViolations 查询越界记录，支持按人员过滤与分页
func (s *ViolationService) GetViolations(agentID *uint, onlyOpen bool, page, pageSize int) ([]models.Violation, int64, error) {
	var violations []models.Violation
	var total int64

	query := s.DB.Model(&models.Violation{})
	if agentID != nil {
		query = query.Where("agent_id = ?", *agentID)
	}
	if onlyOpen {
		query = query.Where("open_flag = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Preload("Zone").Order("detected_at DESC").
		Offset(offset).Limit(pageSize).Find(&violations).Error; err != nil {
		return nil, 0, err
	}

	return violations, total, nil
}

// isDuplicateKeyError 判断是否为唯一索引冲突
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// MySQL错误1062的兜底判断
	return strings.Contains(err.Error(), "Duplicate entry")
}
