package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"

	"Quilt/internal/onboarding"
	"Quilt/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存 TTL，较短时间避免长期占用
	emptyValueTTL = 5 * time.Minute
	// 过期时间随机抖动上限，防止同时失效
	ttlJitterMax = 30 * time.Second
)

// ProtectedCache 带空值保护的 JSON 缓存
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
}

func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
	}
}

// Set value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	cacheKey := redis.Key(pc.keyPrefix, key)

	if value == nil {
		return redis.Client().Set(ctx, cacheKey, emptyValueFlag, pc.emptyTTL).Err()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return redis.Client().Set(ctx, cacheKey, data, pc.ttl+jitter()).Err()
}

// Get 返回 (命中, 是否空值, 错误)
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (bool, bool, error) {
	data, err := redis.Client().Get(ctx, redis.Key(pc.keyPrefix, key)).Result()
	if err != nil {
		if stderrors.Is(err, ri.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, false, nil
}

func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(ttlJitterMax)))
}

// StatusCache 引导完成标记缓存，恢复路由读取频繁，合并成功后失效
type StatusCache struct {
	cache *ProtectedCache
}

func NewStatusCache() *StatusCache {
	return &StatusCache{cache: NewProtectedCache("onboarding:status", 10*time.Minute)}
}

// Get 未命中返回 nil
func (s *StatusCache) Get(ctx context.Context, userID string) (*onboarding.Status, error) {
	var status onboarding.Status
	hit, empty, err := s.cache.Get(ctx, userID, &status)
	if err != nil || !hit || empty {
		return nil, err
	}
	return &status, nil
}

func (s *StatusCache) Set(ctx context.Context, userID string, status onboarding.Status) error {
	return s.cache.Set(ctx, userID, status)
}

func (s *StatusCache) Delete(ctx context.Context, userID string) error {
	return s.cache.Delete(ctx, userID)
}
