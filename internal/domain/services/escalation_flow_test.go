package services

import (
	"testing"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// stubNotifier 记录通知调用，不做实际投递
type stubNotifier struct {
	dispatched []int    // DispatchTier收到的层级
	events     []string // NotifyAlertUpdate收到的事件
}

func (n *stubNotifier) DispatchTier(alert *models.EmergencyAlert, tier EscalationTier) error {
	n.dispatched = append(n.dispatched, tier.Level)
	return nil
}

func (n *stubNotifier) NotifyAlertUpdate(alert *models.EmergencyAlert, event string) {
	n.events = append(n.events, event)
}

func (n *stubNotifier) GetNotificationsByAlert(alertID uint) ([]models.AlertNotification, error) {
	return nil, nil
}

// newMockEscalationService 构造基于sqlmock的升级服务。
// 关闭默认事务，测试中逐条语句断言。
func newMockEscalationService(t *testing.T, cfg *config.Config) (*EscalationService, sqlmock.Sqlmock, *stubNotifier) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("创建sqlmock失败: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开gorm连接失败: %v", err)
	}

	notifier := &stubNotifier{}
	svc := &EscalationService{
		DB:       db,
		Config:   cfg,
		Notifier: notifier,
		Ladder:   BuildLadder(cfg),
	}
	return svc, mock, notifier
}

func alertRows(id uint, uuid string, status models.AlertStatus, level int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "created_at", "uuid", "type", "status", "agent_id", "escalation_level"}).
		AddRow(id, time.Now(), uuid, "panic", string(status), 3, level)
}

// TestAcknowledgeCancelsSchedules 确认警报后取消全部待触发升级任务
func TestAcknowledgeCancelsSchedules(t *testing.T) {
	svc, mock, notifier := newMockEscalationService(t, testEscalationConfig())

	mock.ExpectQuery("SELECT (.+) FROM `emergency_alerts`").
		WillReturnRows(alertRows(7, "a1b2c3", models.AlertStatusActive, 2))
	mock.ExpectExec("UPDATE `emergency_alerts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	alert, err := svc.Acknowledge("a1b2c3", 12)
	if err != nil {
		t.Fatalf("确认警报失败: %v", err)
	}
	if alert.Status != models.AlertStatusAcknowledged {
		t.Errorf("确认后状态应为ACKNOWLEDGED，实际为 %s", alert.Status)
	}
	if alert.AcknowledgedBy == nil || *alert.AcknowledgedBy != 12 {
		t.Error("确认人未记录")
	}
	if alert.AcknowledgedAt == nil {
		t.Error("确认时间未记录")
	}

	if len(notifier.events) != 1 || notifier.events[0] != "alert_acknowledged" {
		t.Errorf("应推送alert_acknowledged事件，实际为 %v", notifier.events)
	}

	// 升级任务的DELETE必须执行
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestAcknowledgeLostRaceLeavesSchedules 条件更新未命中时报错且不触碰升级任务。
// 另一实例先行确认或关闭时走到这里。
func TestAcknowledgeLostRaceLeavesSchedules(t *testing.T) {
	svc, mock, notifier := newMockEscalationService(t, testEscalationConfig())

	mock.ExpectQuery("SELECT (.+) FROM `emergency_alerts`").
		WillReturnRows(alertRows(7, "a1b2c3", models.AlertStatusActive, 1))
	mock.ExpectExec("UPDATE `emergency_alerts`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := svc.Acknowledge("a1b2c3", 12); err == nil {
		t.Fatal("更新未命中时应返回错误")
	}
	if len(notifier.events) != 0 {
		t.Errorf("失败的确认不应推送事件，实际收到 %v", notifier.events)
	}
	// 未预期DELETE，多余语句会在此暴露
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestFireScheduleSkipsNonActiveAlert 触发时警报已确认则静默放弃，不更新级别不通知
func TestFireScheduleSkipsNonActiveAlert(t *testing.T) {
	svc, mock, notifier := newMockEscalationService(t, testEscalationConfig())

	mock.ExpectExec("DELETE FROM `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `emergency_alerts`").
		WillReturnRows(alertRows(7, "a1b2c3", models.AlertStatusAcknowledged, 1))

	schedule := &models.EscalationSchedule{
		BaseModel:   models.BaseModel{ID: 41},
		AlertID:     7,
		TargetLevel: 2,
	}
	if svc.fireSchedule(schedule) {
		t.Error("非ACTIVE警报的升级任务不应触发")
	}
	if len(notifier.dispatched) != 0 {
		t.Errorf("不应有任何层级通知，实际为 %v", notifier.dispatched)
	}
	// 未预期UPDATE，级别被改动会在此暴露
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestFireScheduleAlreadyClaimed 主键删除未命中说明已被其他实例认领，直接放弃
func TestFireScheduleAlreadyClaimed(t *testing.T) {
	svc, mock, notifier := newMockEscalationService(t, testEscalationConfig())

	mock.ExpectExec("DELETE FROM `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	schedule := &models.EscalationSchedule{
		BaseModel:   models.BaseModel{ID: 41},
		AlertID:     7,
		TargetLevel: 2,
	}
	if svc.fireSchedule(schedule) {
		t.Error("认领失败的任务不应触发")
	}
	if len(notifier.dispatched) != 0 {
		t.Errorf("不应有任何层级通知，实际为 %v", notifier.dispatched)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestFireScheduleDropsLevelBeyondLadder 调低ESCALATION_MAX_LEVEL后重启，
// 表中遗留的超阶梯任务被丢弃而不是触发崩溃
func TestFireScheduleDropsLevelBeyondLadder(t *testing.T) {
	cfg := testEscalationConfig()
	cfg.EscalationMaxLevel = 2
	svc, mock, notifier := newMockEscalationService(t, cfg)

	mock.ExpectExec("DELETE FROM `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `emergency_alerts`").
		WillReturnRows(alertRows(7, "a1b2c3", models.AlertStatusActive, 2))

	// 降配前调度的第3级任务
	schedule := &models.EscalationSchedule{
		BaseModel:   models.BaseModel{ID: 41},
		AlertID:     7,
		TargetLevel: 3,
	}
	if svc.fireSchedule(schedule) {
		t.Error("超出阶梯的任务不应触发")
	}
	if len(notifier.dispatched) != 0 {
		t.Errorf("不应有任何层级通知，实际为 %v", notifier.dispatched)
	}
	// 级别不应被推到阶梯之外
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestFireScheduleAdvancesAndSchedulesNext 正常触发：升级别、通知该级、调度下一级
func TestFireScheduleAdvancesAndSchedulesNext(t *testing.T) {
	svc, mock, notifier := newMockEscalationService(t, testEscalationConfig())

	mock.ExpectExec("DELETE FROM `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM `emergency_alerts`").
		WillReturnRows(alertRows(7, "a1b2c3", models.AlertStatusActive, 1))
	mock.ExpectExec("UPDATE `emergency_alerts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `escalation_schedules`").
		WillReturnResult(sqlmock.NewResult(42, 1))

	schedule := &models.EscalationSchedule{
		BaseModel:   models.BaseModel{ID: 41},
		AlertID:     7,
		TargetLevel: 2,
	}
	if !svc.fireSchedule(schedule) {
		t.Fatal("ACTIVE警报的到期任务应触发")
	}
	if len(notifier.dispatched) != 1 || notifier.dispatched[0] != 2 {
		t.Errorf("应按第2级扇出通知，实际为 %v", notifier.dispatched)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("语句断言未满足: %v", err)
	}
}

// TestTierForBounds 阶梯查询的边界：1..len(Ladder)有效，其余拒绝
func TestTierForBounds(t *testing.T) {
	cfg := testEscalationConfig()
	cfg.EscalationMaxLevel = 2
	svc := &EscalationService{Config: cfg, Ladder: BuildLadder(cfg)}

	if _, ok := svc.tierFor(0); ok {
		t.Error("级别0不应命中阶梯")
	}
	if tier, ok := svc.tierFor(2); !ok || tier.Level != 2 {
		t.Error("级别2应命中阶梯末级")
	}
	if _, ok := svc.tierFor(3); ok {
		t.Error("超出阶梯的级别不应命中")
	}
}
