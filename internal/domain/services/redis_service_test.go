package services

import (
	"encoding/json"
	"testing"
	"time"
)

func offlineItemJSON(t *testing.T, queuedAt time.Time, body string) string {
	t.Helper()
	data, err := json.Marshal(offlineQueueItem{
		QueuedAt: queuedAt,
		Body:     json.RawMessage(body),
	})
	if err != nil {
		t.Fatalf("构造队列条目失败: %v", err)
	}
	return string(data)
}

// TestPruneOfflineItemsDropsStale 超过保留期的条目被丢弃，仍在期内的保留本体
func TestPruneOfflineItemsDropsStale(t *testing.T) {
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	fresh := `{"event":"emergency_alert","payload":{"uuid":"a"}}`
	stale := `{"event":"emergency_alert","payload":{"uuid":"b"}}`

	items := []string{
		offlineItemJSON(t, now.Add(-1*time.Hour), fresh),
		offlineItemJSON(t, now.Add(-48*time.Hour), stale),
	}

	kept := pruneOfflineItems(items, cutoff)
	if len(kept) != 1 {
		t.Fatalf("应只保留1条未过期通知，实际为 %d", len(kept))
	}
	if kept[0] != fresh {
		t.Errorf("保留的应是未过期通知的本体，实际为 %s", kept[0])
	}
}

// TestPruneOfflineItemsCutoffBoundary 恰在保留期边界之后入队的条目保留
func TestPruneOfflineItemsCutoffBoundary(t *testing.T) {
	cutoff := time.Now().Add(-24 * time.Hour)
	items := []string{
		offlineItemJSON(t, cutoff.Add(time.Second), `{"event":"x"}`),
	}

	if kept := pruneOfflineItems(items, cutoff); len(kept) != 1 {
		t.Errorf("保留期内的条目不应被丢弃，保留数为 %d", len(kept))
	}
}

// TestPruneOfflineItemsKeepsUnrecognized 无时间戳的旧格式条目原样透传
func TestPruneOfflineItemsKeepsUnrecognized(t *testing.T) {
	legacy := `{"event":"emergency_alert","payload":{"uuid":"c"}}`
	garbage := `not-json`

	kept := pruneOfflineItems([]string{legacy, garbage}, time.Now())
	if len(kept) != 2 {
		t.Fatalf("无法识别的条目应原样保留，实际保留 %d 条", len(kept))
	}
	if kept[0] != legacy || kept[1] != garbage {
		t.Error("无法识别的条目不应被改写")
	}
}

// TestPruneOfflineItemsEmpty 空队列返回空切片
func TestPruneOfflineItemsEmpty(t *testing.T) {
	if kept := pruneOfflineItems(nil, time.Now()); len(kept) != 0 {
		t.Errorf("空输入应返回空结果，实际为 %d 条", len(kept))
	}
}
