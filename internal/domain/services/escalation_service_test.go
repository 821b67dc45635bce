package services

import (
	"testing"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"
)

func testEscalationConfig() *config.Config {
	return &config.Config{
		EscalationMaxLevel:    3,
		EscalationLevel2Delay: 5 * time.Minute,
		EscalationLevel3Delay: 15 * time.Minute,
	}
}

// TestBuildLadderDefaults 默认三级阶梯的层级、延迟与通道
func TestBuildLadderDefaults(t *testing.T) {
	ladder := BuildLadder(testEscalationConfig())

	if len(ladder) != 3 {
		t.Fatalf("默认阶梯应为3级，实际为 %d", len(ladder))
	}

	if ladder[0].Level != 1 || ladder[0].Delay != 0 {
		t.Errorf("第1级应立即触发，实际延迟 %v", ladder[0].Delay)
	}
	if ladder[1].Delay != 5*time.Minute {
		t.Errorf("第2级延迟应为5分钟，实际为 %v", ladder[1].Delay)
	}
	if ladder[2].Delay != 15*time.Minute {
		t.Errorf("第3级延迟应为15分钟，实际为 %v", ladder[2].Delay)
	}

	// 层级单调递增
	for i := 1; i < len(ladder); i++ {
		if ladder[i].Level != ladder[i-1].Level+1 {
			t.Errorf("层级应连续递增: %d -> %d", ladder[i-1].Level, ladder[i].Level)
		}
		if ladder[i].Delay < ladder[i-1].Delay {
			t.Errorf("累计延迟应单调递增: %v -> %v", ladder[i-1].Delay, ladder[i].Delay)
		}
	}

	// 第3级才包含紧急联系人与短信
	if ladder[0].IncludeContacts || ladder[1].IncludeContacts {
		t.Error("前两级不应包含紧急联系人")
	}
	if !ladder[2].IncludeContacts {
		t.Error("第3级应包含紧急联系人")
	}

	hasSMS := func(tier EscalationTier) bool {
		for _, ch := range tier.Channels {
			if ch == models.ChannelSMS {
				return true
			}
		}
		return false
	}
	if hasSMS(ladder[0]) || hasSMS(ladder[1]) {
		t.Error("短信通道只应出现在第3级")
	}
	if !hasSMS(ladder[2]) {
		t.Error("第3级应包含短信通道")
	}
}

// TestBuildLadderTruncated 最大层级配置截断阶梯
func TestBuildLadderTruncated(t *testing.T) {
	cfg := testEscalationConfig()
	cfg.EscalationMaxLevel = 2

	ladder := BuildLadder(cfg)
	if len(ladder) != 2 {
		t.Fatalf("最大层级为2时阶梯应为2级，实际为 %d", len(ladder))
	}
	if ladder[len(ladder)-1].Level != 2 {
		t.Errorf("截断后最高层级应为2，实际为 %d", ladder[len(ladder)-1].Level)
	}
}

// TestBuildLadderInvalidMaxLevel 非法的最大层级保留完整阶梯
func TestBuildLadderInvalidMaxLevel(t *testing.T) {
	cfg := testEscalationConfig()
	cfg.EscalationMaxLevel = 0

	if got := len(BuildLadder(cfg)); got != 3 {
		t.Errorf("最大层级为0时应保留完整阶梯，实际为 %d 级", got)
	}
}

// TestCanAcknowledge 只有ACTIVE状态允许确认
func TestCanAcknowledge(t *testing.T) {
	cases := []struct {
		status models.AlertStatus
		want   bool
	}{
		{models.AlertStatusActive, true},
		{models.AlertStatusAcknowledged, false}, // 重复确认无效
		{models.AlertStatusResolved, false},
		{models.AlertStatusFalseAlarm, false},
	}

	for _, c := range cases {
		if got := CanAcknowledge(c.status); got != c.want {
			t.Errorf("CanAcknowledge(%s) = %v, 期望 %v", c.status, got, c.want)
		}
	}
}

// TestCanResolve 开启状态均可关闭，终态不可再变更
func TestCanResolve(t *testing.T) {
	cases := []struct {
		status models.AlertStatus
		want   bool
	}{
		{models.AlertStatusActive, true},
		{models.AlertStatusAcknowledged, true},
		{models.AlertStatusResolved, false},
		{models.AlertStatusFalseAlarm, false},
	}

	for _, c := range cases {
		if got := CanResolve(c.status); got != c.want {
			t.Errorf("CanResolve(%s) = %v, 期望 %v", c.status, got, c.want)
		}
	}
}

// TestAlertStatusTerminal 终态判断
func TestAlertStatusTerminal(t *testing.T) {
	if models.AlertStatusActive.IsTerminal() || models.AlertStatusAcknowledged.IsTerminal() {
		t.Error("ACTIVE与ACKNOWLEDGED不是终态")
	}
	if !models.AlertStatusResolved.IsTerminal() || !models.AlertStatusFalseAlarm.IsTerminal() {
		t.Error("RESOLVED与FALSE_ALARM应为终态")
	}
}

// TestLadderFireTimes 升级触发时间以警报创建时间为基准累计
func TestLadderFireTimes(t *testing.T) {
	ladder := BuildLadder(testEscalationConfig())
	createdAt := time.Date(2023, 7, 1, 8, 0, 0, 0, time.UTC)

	// 第2级应在第5分钟、第3级应在第15分钟触发，
	// 与第2级实际触发时间无关
	l2 := createdAt.Add(ladder[1].Delay)
	l3 := createdAt.Add(ladder[2].Delay)

	if l2.Minute() != 5 {
		t.Errorf("第2级应在第5分钟触发，实际为 %v", l2)
	}
	if l3.Minute() != 15 {
		t.Errorf("第3级应在第15分钟触发，实际为 %v", l3)
	}
}
