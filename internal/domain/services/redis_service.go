package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldtrack-http-service/internal/domain/models"
	"fieldtrack-http-service/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// InterfaceRedisService 定义Redis服务接口
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	SetCurrentPosition(pos *models.CurrentPosition, expiration time.Duration) error
	GetCurrentPosition(agentID uint) (*models.CurrentPosition, error)
	InvalidatePosition(agentID uint) error
	GetAllCurrentPositions() ([]models.CurrentPosition, error)
	QueueOfflineNotification(userID uint, payload interface{}, expiration time.Duration) error
	FlushOfflineNotifications(userID uint, maxAge time.Duration) ([]string, error)
	Ping() error
}

// 键名约定
const (
	positionKeyPrefix = "tracking:position:" // 当前位置，按人员ID
	trackedAgentsKey  = "tracking:agents"    // 有缓存位置的人员ID集合
	offlineKeyPrefix  = "notify:offline:"    // 离线通知队列，按用户ID
)

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) InterfaceRedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: "", // No password set
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	return &RedisService{
		Client: client,
		Ctx:    ctx,
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

// Ping 测试Redis连接
func (s *RedisService) Ping() error {
	return s.Client.Ping(s.Ctx).Err()
}

// SetCurrentPosition 覆盖写入某人员的当前位置，带TTL。
// TTL过期后读取方即视该人员为离线/位置过期。
func (s *RedisService) SetCurrentPosition(pos *models.CurrentPosition, expiration time.Duration) error {
	key := positionKey(pos.AgentID)
	if err := s.Set(key, pos, expiration); err != nil {
		return err
	}

	// 维护人员ID集合，供"全部当前位置"查询使用
	return s.Client.SAdd(s.Ctx, trackedAgentsKey, fmt.Sprintf("%d", pos.AgentID)).Err()
}

// GetCurrentPosition 读取某人员的当前位置；键不存在或已过期返回redis.Nil
func (s *RedisService) GetCurrentPosition(agentID uint) (*models.CurrentPosition, error) {
	var pos models.CurrentPosition
	if err := s.Get(positionKey(agentID), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// InvalidatePosition 主动失效某人员的当前位置
func (s *RedisService) InvalidatePosition(agentID uint) error {
	if err := s.Delete(positionKey(agentID)); err != nil {
		return err
	}
	return s.Client.SRem(s.Ctx, trackedAgentsKey, fmt.Sprintf("%d", agentID)).Err()
}

// GetAllCurrentPositions 返回所有仍在有效期内的当前位置。
// 位置键已过期的成员顺手从集合中清除。
func (s *RedisService) GetAllCurrentPositions() ([]models.CurrentPosition, error) {
	ids, err := s.Client.SMembers(s.Ctx, trackedAgentsKey).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]models.CurrentPosition, 0, len(ids))
	for _, id := range ids {
		val, err := s.Client.Get(s.Ctx, positionKeyPrefix+id).Result()
		if err == redis.Nil {
			// 位置已过期，清理集合成员
			s.Client.SRem(s.Ctx, trackedAgentsKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}

		var pos models.CurrentPosition
		if err := json.Unmarshal([]byte(val), &pos); err != nil {
			continue
		}
		positions = append(positions, pos)
	}

	return positions, nil
}

// offlineQueueItem 离线队列中的单条通知，带入队时间以实现逐条保留期
type offlineQueueItem struct {
	QueuedAt time.Time       `json:"queued_at"`
	Body     json.RawMessage `json:"body"`
}

// QueueOfflineNotification 将通知写入用户的离线队列。
// 每条带入队时间戳，冲刷时按保留期逐条过滤；键级EXPIRE只兜底
// 清理完全无人连接的队列。用户下次建立连接时由连接处理器冲刷。
func (s *RedisService) QueueOfflineNotification(userID uint, payload interface{}, expiration time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	jsonValue, err := json.Marshal(offlineQueueItem{
		QueuedAt: time.Now(),
		Body:     body,
	})
	if err != nil {
		return err
	}

	key := offlineKeyPrefix + fmt.Sprintf("%d", userID)
	if err := s.Client.RPush(s.Ctx, key, jsonValue).Err(); err != nil {
		return err
	}
	return s.Client.Expire(s.Ctx, key, expiration).Err()
}

// FlushOfflineNotifications 原子地取出并清空用户的离线通知队列。
// 读取和删除在MULTI/EXEC中执行，两步之间入队的通知不会被删掉丢失；
// 入队超过maxAge的条目按保留期丢弃。
func (s *RedisService) FlushOfflineNotifications(userID uint, maxAge time.Duration) ([]string, error) {
	key := offlineKeyPrefix + fmt.Sprintf("%d", userID)

	pipe := s.Client.TxPipeline()
	lrange := pipe.LRange(s.Ctx, key, 0, -1)
	pipe.Del(s.Ctx, key)
	if _, err := pipe.Exec(s.Ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	items := lrange.Val()
	if len(items) == 0 {
		return nil, nil
	}
	return pruneOfflineItems(items, time.Now().Add(-maxAge)), nil
}

// pruneOfflineItems 过滤掉入队时间早于cutoff的条目，返回通知本体。
// 无法识别的条目原样保留，由消费方处理格式问题。
func pruneOfflineItems(items []string, cutoff time.Time) []string {
	kept := make([]string, 0, len(items))
	for _, raw := range items {
		var item offlineQueueItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil ||
			item.QueuedAt.IsZero() || len(item.Body) == 0 {
			kept = append(kept, raw)
			continue
		}
		if item.QueuedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, string(item.Body))
	}
	return kept
}

func positionKey(agentID uint) string {
	return fmt.Sprintf("%s%d", positionKeyPrefix, agentID)
}
