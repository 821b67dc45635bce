package services

import (
	"testing"
	"time"
)

// TestRetentionCutoff 保留期截止时间计算
func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2023, 7, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		daysToKeep int
		want       time.Time
	}{
		{10, time.Date(2023, 7, 21, 12, 0, 0, 0, time.UTC)},
		{29, time.Date(2023, 7, 2, 12, 0, 0, 0, time.UTC)},
		{31, time.Date(2023, 6, 30, 12, 0, 0, 0, time.UTC)},
		{45, time.Date(2023, 6, 16, 12, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		got := RetentionCutoff(now, c.daysToKeep)
		if !got.Equal(c.want) {
			t.Errorf("保留%d天的截止时间应为 %v，实际为 %v", c.daysToKeep, c.want, got)
		}
	}
}

// TestRetentionCutoffOrdering 保留天数越大截止时间越早
func TestRetentionCutoffOrdering(t *testing.T) {
	now := time.Now()
	if !RetentionCutoff(now, 30).Before(RetentionCutoff(now, 7)) {
		t.Error("保留30天的截止时间应早于保留7天的")
	}
}
