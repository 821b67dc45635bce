package services

import (
	"errors"
	"fmt"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
	"fieldtrack-http-service/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscalationTier 升级阶梯中的一级：延迟、接收方角色集合与通道集合。
// Delay 为相对警报创建时间的累计延迟。
type EscalationTier struct {
	Level           int
	Delay           time.Duration
	Roles           []models.UserRole
	IncludeContacts bool
	Channels        []models.NotifyChannel
}

// BuildLadder 根据配置构造升级阶梯。
// 默认：1级立即通知主管(站内+推送)；2级+5分钟加管理员(加邮件)；
// 3级+15分钟加紧急联系人(加短信)。
func BuildLadder(cfg *config.Config) []EscalationTier {
	ladder := []EscalationTier{
		{
			Level:    1,
			Delay:    0,
			Roles:    []models.UserRole{models.RoleSupervisor},
			Channels: []models.NotifyChannel{models.ChannelInApp, models.ChannelPush},
		},
		{
			Level:    2,
			Delay:    cfg.EscalationLevel2Delay,
			Roles:    []models.UserRole{models.RoleSupervisor, models.RoleAdmin},
			Channels: []models.NotifyChannel{models.ChannelInApp, models.ChannelPush, models.ChannelEmail},
		},
		{
			Level:           3,
			Delay:           cfg.EscalationLevel3Delay,
			Roles:           []models.UserRole{models.RoleSupervisor, models.RoleAdmin},
			IncludeContacts: true,
			Channels:        []models.NotifyChannel{models.ChannelInApp, models.ChannelPush, models.ChannelEmail, models.ChannelSMS},
		},
	}

	if cfg.EscalationMaxLevel < len(ladder) && cfg.EscalationMaxLevel >= 1 {
		ladder = ladder[:cfg.EscalationMaxLevel]
	}
	return ladder
}

// CanAcknowledge 判断状态是否允许确认
func CanAcknowledge(status models.AlertStatus) bool {
	return status == models.AlertStatusActive
}

// CanResolve 判断状态是否允许关闭
func CanResolve(status models.AlertStatus) bool {
	return status == models.AlertStatusActive || status == models.AlertStatusAcknowledged
}

// InterfaceEscalationService 定义警报升级服务接口
type InterfaceEscalationService interface {
	CreateAlert(alert *models.EmergencyAlert) error
	CreateAlertForViolation(violation *models.Violation, sample *models.LocationSample) (*models.EmergencyAlert, error)
	Acknowledge(alertUUID string, by uint) (*models.EmergencyAlert, error)
	Resolve(alertUUID string, by uint, falseAlarm bool, resolution string) (*models.EmergencyAlert, error)
	GetAlertByUUID(alertUUID string) (*models.EmergencyAlert, error)
	GetAlerts(status string, page, pageSize int) ([]models.EmergencyAlert, int64, error)
	StartScheduler(stop <-chan struct{})
	ProcessDueSchedules() int
}

// EscalationService 警报升级状态机。
// 升级定时任务持久化在数据库中，由轮询调度器认领触发，
// 进程重启后待触发的任务仍在表中，不丢失也不重复。
type EscalationService struct {
	DB       *gorm.DB
	Config   *config.Config
	Notifier InterfaceNotificationService
	Ladder   []EscalationTier
}

// NewEscalationService 创建新的警报升级服务
func NewEscalationService(db *gorm.DB, cfg *config.Config, notifier InterfaceNotificationService) InterfaceEscalationService {
	return &EscalationService{
		DB:       db,
		Config:   cfg,
		Notifier: notifier,
		Ladder:   BuildLadder(cfg),
	}
}

// CreateAlert 创建警报：置为ACTIVE、级别1，立即通知第1级并调度第2级。
// 第1级通知失败不阻塞创建，失败落在投递记录上。
func (s *EscalationService) CreateAlert(alert *models.EmergencyAlert) error {
	if alert.UUID == "" {
		alert.UUID = uuid.NewString()
	}
	alert.Status = models.AlertStatusActive
	alert.EscalationLevel = 1
	if alert.Priority == "" {
		alert.Priority = models.PriorityHigh
	}

	if err := s.DB.Create(alert).Error; err != nil {
		return err
	}

	// 第1级立即通知
	if err := s.Notifier.DispatchTier(alert, s.Ladder[0]); err != nil {
		logger.Error("警报第1级通知失败: alert=%s err=%v", alert.UUID, err)
	}

	// 调度下一级
	if err := s.scheduleNextTier(alert, 1); err != nil {
		logger.Error("调度警报升级失败: alert=%s err=%v", alert.UUID, err)
	}

	return nil
}

// CreateAlertForViolation 由越界记录创建围栏警报
func (s *EscalationService) CreateAlertForViolation(violation *models.Violation, sample *models.LocationSample) (*models.EmergencyAlert, error) {
	priority := models.PriorityHigh
	if violation.Severity == models.SeverityHigh {
		priority = models.PriorityCritical
	}

	violationID := violation.ID
	lat := sample.Latitude
	lon := sample.Longitude

	alert := &models.EmergencyAlert{
		Type:        models.AlertTypeGeofence,
		Priority:    priority,
		AgentID:     violation.AgentID,
		ViolationID: &violationID,
		Latitude:    &lat,
		Longitude:   &lon,
		Description: fmt.Sprintf("人员越出围栏区域，距中心%.0f米，严重程度: %s",
			violation.Distance, violation.Severity),
	}

	if err := s.CreateAlert(alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Acknowledge 确认警报：ACTIVE -> ACKNOWLEDGED，取消全部待触发升级。
// 确认表示有人接手，但警报在关闭前保持开启。
func (s *EscalationService) Acknowledge(alertUUID string, by uint) (*models.EmergencyAlert, error) {
	alert, err := s.GetAlertByUUID(alertUUID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := s.DB.Model(&models.EmergencyAlert{}).
		Where("id = ? AND status = ?", alert.ID, models.AlertStatusActive).
		Updates(map[string]interface{}{
			"status":          models.AlertStatusAcknowledged,
			"acknowledged_by": by,
			"acknowledged_at": &now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// 状态已变化：终态拒绝，重复确认按无效状态处理
		if alert.Status.IsTerminal() {
			return nil, errors.New("警报已关闭，不可确认")
		}
		return nil, errors.New("警报状态不允许确认")
	}

	// 取消全部待触发升级；已在触发中的任务会在触发时重查状态，安全失效
	if err := s.cancelSchedules(alert.ID); err != nil {
		logger.Error("取消升级调度失败: alert=%s err=%v", alertUUID, err)
	}

	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedBy = &by
	alert.AcknowledgedAt = &now

	s.Notifier.NotifyAlertUpdate(alert, "alert_acknowledged")
	return alert, nil
}

// Resolve 关闭警报：ACTIVE/ACKNOWLEDGED -> RESOLVED或FALSE_ALARM（终态）
func (s *EscalationService) Resolve(alertUUID string, by uint, falseAlarm bool, resolution string) (*models.EmergencyAlert, error) {
	alert, err := s.GetAlertByUUID(alertUUID)
	if err != nil {
		return nil, err
	}

	target := models.AlertStatusResolved
	if falseAlarm {
		target = models.AlertStatusFalseAlarm
	}

	now := time.Now()
	result := s.DB.Model(&models.EmergencyAlert{}).
		Where("id = ? AND status IN ?", alert.ID,
			[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusAcknowledged}).
		Updates(map[string]interface{}{
			"status":      target,
			"resolved_by": by,
			"resolved_at": &now,
			"resolution":  resolution,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("警报已关闭，不可重复操作")
	}

	if err := s.cancelSchedules(alert.ID); err != nil {
		logger.Error("取消升级调度失败: alert=%s err=%v", alertUUID, err)
	}

	alert.Status = target
	alert.ResolvedBy = &by
	alert.ResolvedAt = &now
	alert.Resolution = resolution

	s.Notifier.NotifyAlertUpdate(alert, "alert_resolved")
	return alert, nil
}

// GetAlertByUUID 根据UUID获取警报
func (s *EscalationService) GetAlertByUUID(alertUUID string) (*models.EmergencyAlert, error) {
	var alert models.EmergencyAlert
	if err := s.DB.Where("uuid = ?", alertUUID).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("警报不存在")
		}
		return nil, err
	}
	return &alert, nil
}

// GetAlerts 查询警报列表，支持按状态过滤与分页
func (s *EscalationService) GetAlerts(status string, page, pageSize int) ([]models.EmergencyAlert, int64, error) {
	var alerts []models.EmergencyAlert
	var total int64

	query := s.DB.Model(&models.EmergencyAlert{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Preload("Agent").Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&alerts).Error; err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// StartScheduler 启动升级调度器。
// 调度任务在数据库中，启动即等价于重建：轮询会捡起所有到期任务。
func (s *EscalationService) StartScheduler(stop <-chan struct{}) {
	var pending int64
	if err := s.DB.Model(&models.EscalationSchedule{}).Count(&pending).Error; err == nil && pending > 0 {
		logger.Info("升级调度器启动，恢复%d条待触发任务", pending)
	}

	go func() {
		ticker := time.NewTicker(s.Config.SchedulerPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				logger.Info("升级调度器已停止")
				return
			case <-ticker.C:
				s.ProcessDueSchedules()
			}
		}
	}()
}

// ProcessDueSchedules 处理所有到期的升级任务，返回实际触发的任务数
func (s *EscalationService) ProcessDueSchedules() int {
	var due []models.EscalationSchedule
	if err := s.DB.Where("fire_at <= ?", time.Now()).Find(&due).Error; err != nil {
		logger.Error("查询到期升级任务失败: %v", err)
		return 0
	}

	fired := 0
	for i := range due {
		if s.fireSchedule(&due[i]) {
			fired++
		}
	}
	return fired
}

// fireSchedule 触发一条升级任务。
// 先按主键删除完成认领（多实例下只有删除成功者执行），
// 再重查警报状态：确认/关闭发生在调度与触发之间时安全放弃。
func (s *EscalationService) fireSchedule(schedule *models.EscalationSchedule) bool {
	claim := s.DB.Delete(&models.EscalationSchedule{}, schedule.ID)
	if claim.Error != nil {
		logger.Error("认领升级任务失败: schedule=%d err=%v", schedule.ID, claim.Error)
		return false
	}
	if claim.RowsAffected == 0 {
		// 已被其他实例认领或已被取消
		return false
	}

	var alert models.EmergencyAlert
	if err := s.DB.First(&alert, schedule.AlertID).Error; err != nil {
		logger.Error("升级任务对应的警报不存在: alert=%d", schedule.AlertID)
		return false
	}

	// 迟到的取消：触发时警报已非ACTIVE则静默放弃
	if alert.Status != models.AlertStatusActive {
		return false
	}

	// ESCALATION_MAX_LEVEL调低后重启，表中可能遗留超出当前阶梯的任务，认领即丢弃
	tier, ok := s.tierFor(schedule.TargetLevel)
	if !ok {
		logger.Warning("升级任务超出当前阶梯，已丢弃: alert=%s level=%d ladder=%d",
			alert.UUID, schedule.TargetLevel, len(s.Ladder))
		return false
	}

	// 级别只增不减
	result := s.DB.Model(&models.EmergencyAlert{}).
		Where("id = ? AND status = ? AND escalation_level < ?",
			alert.ID, models.AlertStatusActive, schedule.TargetLevel).
		Update("escalation_level", schedule.TargetLevel)
	if result.Error != nil {
		logger.Error("更新警报级别失败: alert=%s err=%v", alert.UUID, result.Error)
		return false
	}
	if result.RowsAffected == 0 {
		return false
	}

	alert.EscalationLevel = schedule.TargetLevel

	logger.Warning("警报升级至第%d级: alert=%s type=%s", schedule.TargetLevel, alert.UUID, alert.Type)

	// 通知失败不回滚级别，也不加速下一级；失败在投递记录中
	if err := s.Notifier.DispatchTier(&alert, tier); err != nil {
		logger.Error("警报第%d级通知失败: alert=%s err=%v", schedule.TargetLevel, alert.UUID, err)
	}

	// 按正常延迟调度下一级
	if err := s.scheduleNextTier(&alert, schedule.TargetLevel); err != nil {
		logger.Error("调度警报下一级失败: alert=%s err=%v", alert.UUID, err)
	}

	return true
}

// tierFor 返回某级别对应的阶梯配置；级别超出当前阶梯时返回false
func (s *EscalationService) tierFor(level int) (EscalationTier, bool) {
	if level < 1 || level > len(s.Ladder) {
		return EscalationTier{}, false
	}
	return s.Ladder[level-1], true
}

// scheduleNextTier 为当前级别之后的下一级创建持久化定时任务。
// 已达最大级别则不再调度，警报保持ACTIVE直到有人处理。
func (s *EscalationService) scheduleNextTier(alert *models.EmergencyAlert, currentLevel int) error {
	if currentLevel >= len(s.Ladder) {
		return nil
	}

	next := s.Ladder[currentLevel] // 下一级，Level == currentLevel+1
	schedule := &models.EscalationSchedule{
		AlertID:     alert.ID,
		TargetLevel: next.Level,
		FireAt:      alert.CreatedAt.Add(next.Delay),
	}
	return s.DB.Create(schedule).Error
}

// cancelSchedules 删除某警报的全部待触发升级任务
func (s *EscalationService) cancelSchedules(alertID uint) error {
	return s.DB.Where("alert_id = ?", alertID).Delete(&models.EscalationSchedule{}).Error
}
