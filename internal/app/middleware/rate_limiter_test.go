package middleware

import (
	"testing"
	"time"
)

// TestTokenBucketBurst 桶初始满载，允许容量内的突发请求
func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(1, 5)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Fatalf("第 %d 个突发请求应被允许", i+1)
		}
	}
	if tb.Allow() {
		t.Error("超出容量的请求应被拒绝")
	}
}

// TestTokenBucketRefill 耗尽后按速率补充令牌
func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(100, 1)

	if !tb.Allow() {
		t.Fatal("首个请求应被允许")
	}
	if tb.Allow() {
		t.Fatal("令牌耗尽后应被拒绝")
	}

	// 100/s的速率下20ms足够补充一个令牌
	time.Sleep(20 * time.Millisecond)
	if !tb.Allow() {
		t.Error("补充令牌后应被允许")
	}
}

// TestTokenBucketCapped 令牌不超过桶容量
func TestTokenBucketCapped(t *testing.T) {
	tb := NewTokenBucket(1000, 2)
	time.Sleep(20 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if tb.Allow() {
			allowed++
		}
	}
	if allowed > 2 {
		t.Errorf("允许数不应超过容量2，实际为 %d", allowed)
	}
}

// TestCleanIdleLimiters 闲置限流器被清理，活跃的保留
func TestCleanIdleLimiters(t *testing.T) {
	cfg := RateLimiterConfig{Rate: 1, Burst: 1}
	idle := getLimiter("test:idle", cfg)
	_ = idle

	time.Sleep(10 * time.Millisecond)
	active := getLimiter("test:active", cfg)
	active.Allow()

	cleanIdleLimiters(5 * time.Millisecond)

	keyLimitersMu.RLock()
	_, idleExists := keyLimiters["test:idle"]
	_, activeExists := keyLimiters["test:active"]
	keyLimitersMu.RUnlock()

	if idleExists {
		t.Error("闲置限流器应被清理")
	}
	if !activeExists {
		t.Error("活跃限流器应保留")
	}
}
