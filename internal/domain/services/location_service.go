package services

import (
	"errors"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	"gorm.io/gorm"
)

// TrackingStats 位置追踪健康度汇总
type TrackingStats struct {
	TotalAgents     int64   `json:"total_agents"`
	ReportingAgents int     `json:"reporting_agents"`
	CoveragePct     float64 `json:"coverage_pct"`
	AvgAccuracy     float64 `json:"avg_accuracy"`
	TotalSamples    int64   `json:"total_samples"`
}

// InterfaceLocationService 定义位置追踪服务接口
type InterfaceLocationService interface {
	IngestLocation(sample *models.LocationSample) (degraded bool, err error)
	GetCurrentPositions() ([]models.CurrentPosition, error)
	GetAgentHistory(agentID uint, start, end *time.Time, limit int) ([]models.LocationSample, error)
	GetTrackingStats() (*TrackingStats, error)
	CleanupHistory(daysToKeep int) (int64, error)
}

// LocationService 位置接入管道：校验 → 历史落库 + 缓存覆盖 → 同步围栏评估。
// 围栏评估失败只记录，不影响接入本身的成功。
type LocationService struct {
	DB         *gorm.DB
	Config     *config.Config
	Redis      InterfaceRedisService
	Geofence   InterfaceGeofenceService
	Shift      InterfaceShiftService
	Violation  InterfaceViolationService
	Escalation InterfaceEscalationService
}

// NewLocationService 创建新的位置追踪服务
func NewLocationService(db *gorm.DB, cfg *config.Config, redisSvc InterfaceRedisService,
	geofenceSvc InterfaceGeofenceService, shiftSvc InterfaceShiftService,
	violationSvc InterfaceViolationService, escalationSvc InterfaceEscalationService) InterfaceLocationService {
	return &LocationService{
		DB:         db,
		Config:     cfg,
		Redis:      redisSvc,
		Geofence:   geofenceSvc,
		Shift:      shiftSvc,
		Violation:  violationSvc,
		Escalation: escalationSvc,
	}
}

// IngestLocation 接入一条位置采样。
// 校验失败直接拒绝，任何存储都不写；历史落库失败时走降级路径：
// 缓存照常刷新、跳过围栏评估、返回degraded=true留待对账。
func (s *LocationService) IngestLocation(sample *models.LocationSample) (bool, error) {
	if err := ValidateCoordinates(sample.Latitude, sample.Longitude, sample.Accuracy); err != nil {
		return false, err
	}

	// 人员必须存在且为安保角色
	var agent models.User
	if err := s.DB.Where("id = ? AND role = ?", sample.AgentID, models.RoleAgent).
		First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, errors.New("安保人员不存在")
		}
		return false, err
	}

	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = time.Now()
	}
	if sample.Status == "" {
		sample.Status = models.AgentStatusActive
	}

	degraded := false

	// 历史落库
	if err := s.DB.Create(sample).Error; err != nil {
		logger.Error("位置历史写入失败，进入降级路径: agent=%d err=%v", sample.AgentID, err)
		degraded = true
	}

	// 缓存覆盖写，带TTL；读取方据此区分在线与离线
	pos := &models.CurrentPosition{
		AgentID:    sample.AgentID,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		Accuracy:   sample.Accuracy,
		Speed:      sample.Speed,
		Heading:    sample.Heading,
		Battery:    sample.Battery,
		Status:     sample.Status,
		CapturedAt: sample.CapturedAt,
		UpdatedAt:  time.Now(),
	}
	if err := s.Redis.SetCurrentPosition(pos, s.Config.CurrentPositionTTL); err != nil {
		logger.Warning("当前位置缓存写入失败: agent=%d err=%v", sample.AgentID, err)
		if degraded {
			// 历史与缓存同时失败才算接入失败
			return true, errors.New("位置存储不可用")
		}
	}

	// 降级时跳过评估，留待对账
	if degraded {
		return true, nil
	}

	// 同步围栏评估；评估失败记录日志，不影响接入结果
	if err := s.evaluateSample(sample); err != nil {
		logger.Error("围栏评估失败: agent=%d sample=%d err=%v", sample.AgentID, sample.ID, err)
	}

	return false, nil
}

// evaluateSample 对一条采样执行围栏评估与越界处理。
// 无进行中排班则不评估；只有"入界→出界"转换才产生新警报。
func (s *LocationService) evaluateSample(sample *models.LocationSample) error {
	shift, err := s.Shift.GetActiveShift(sample.AgentID)
	if err != nil {
		return err
	}
	if shift == nil {
		return nil
	}

	zone, err := s.Geofence.GetZone(shift.ZoneID)
	if err != nil {
		return err
	}
	if !zone.Active {
		return nil
	}

	result, err := s.Geofence.Evaluate(sample.Latitude, sample.Longitude, zone)
	if err != nil {
		return err
	}

	if result.InBounds {
		// 重新入界：关闭未结束的越界记录；关联警报仍需人工关闭
		closed, err := s.Violation.CloseOpenViolation(sample.AgentID, zone.ID)
		if err != nil {
			return err
		}
		if closed != nil {
			logger.Info("人员重新入界，越界记录已关闭: agent=%d zone=%d violation=%d",
				sample.AgentID, zone.ID, closed.ID)
		}
		return nil
	}

	violation, err := s.Violation.RecordExcursion(sample, result)
	if err != nil {
		return err
	}
	if violation == nil {
		// 同一越界过程的延续，不重复报警
		return nil
	}

	logger.Warning("检测到越界: agent=%d zone=%d 距离=%.0fm 严重程度=%s",
		sample.AgentID, zone.ID, result.Distance, result.Severity)

	if _, err := s.Escalation.CreateAlertForViolation(violation, sample); err != nil {
		return err
	}
	return nil
}

// GetCurrentPositions 返回所有人员的当前位置（仅缓存中未过期的条目）
func (s *LocationService) GetCurrentPositions() ([]models.CurrentPosition, error) {
	return s.Redis.GetAllCurrentPositions()
}

// GetAgentHistory 查询某人员的历史轨迹，按日期范围与条数上限过滤
func (s *LocationService) GetAgentHistory(agentID uint, start, end *time.Time, limit int) ([]models.LocationSample, error) {
	if limit <= 0 || limit > s.Config.HistoryDefaultLimit {
		limit = s.Config.HistoryDefaultLimit
	}

	query := s.DB.Where("agent_id = ?", agentID)
	if start != nil {
		query = query.Where("captured_at >= ?", *start)
	}
	if end != nil {
		query = query.Where("captured_at <= ?", *end)
	}

	var samples []models.LocationSample
	if err := query.Order("captured_at DESC").Limit(limit).Find(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

// GetTrackingStats 汇总位置追踪健康度：人数、覆盖率、平均精度
func (s *LocationService) GetTrackingStats() (*TrackingStats, error) {
	stats := &TrackingStats{}

	if err := s.DB.Model(&models.User{}).
		Where("role = ? AND status = ?", models.RoleAgent, models.UserStatusActive).
		Count(&stats.TotalAgents).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.LocationSample{}).Count(&stats.TotalSamples).Error; err != nil {
		return nil, err
	}

	positions, err := s.Redis.GetAllCurrentPositions()
	if err != nil {
		return nil, err
	}

	stats.ReportingAgents = len(positions)
	if stats.TotalAgents > 0 {
		stats.CoveragePct = float64(stats.ReportingAgents) / float64(stats.TotalAgents) * 100
	}

	if len(positions) > 0 {
		var sum float64
		for _, p := range positions {
			sum += p.Accuracy
		}
		stats.AvgAccuracy = sum / float64(len(positions))
	}

	return stats, nil
}

// CleanupHistory 删除早于保留天数的历史采样，返回删除条数。
// 仅管理员调用。
func (s *LocationService) CleanupHistory(daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		return 0, errors.New("保留天数必须大于0")
	}

	cutoff := RetentionCutoff(time.Now(), daysToKeep)
	result := s.DB.Where("captured_at < ?", cutoff).Delete(&models.LocationSample{})
	if result.Error != nil {
		return 0, result.Error
	}

	logger.Info("位置历史清理完成: 保留%d天, 删除%d条", daysToKeep, result.RowsAffected)
	return result.RowsAffected, nil
}

// RetentionCutoff 计算保留截止时间：早于该时间的采样应被删除
func RetentionCutoff(now time.Time, daysToKeep int) time.Time {
	return now.AddDate(0, 0, -daysToKeep)
}
